// Package stubserver is a development harness implementing the
// backend contract the client consumes: the SSE/WebSocket push channel
// and the list/unread/mark/delete REST surface with the uniform
// envelope. It keeps everything in memory so the client can be
// exercised end to end without the real CRM backend.
package stubserver

import (
	"sort"
	"sync"
	"time"

	"github.com/homepoint/crm-notify/internal/domain"
)

// State is the in-memory notification collection for all receivers.
type State struct {
	mu      sync.Mutex
	nextID  int64
	records []domain.Record // newest first
}

// NewState creates an empty State.
func NewState() *State {
	return &State{nextID: 1}
}

// Insert creates one record for the receiver and returns it.
func (s *State) Insert(receiver int64, category domain.Category, content, targetURL string) domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := domain.Record{
		ID:         s.nextID,
		ReceiverID: receiver,
		Category:   category.Normalize(),
		Content:    content,
		TargetURL:  targetURL,
		CreatedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	s.nextID++
	s.records = append([]domain.Record{rec}, s.records...)
	return rec
}

// List returns one page of the receiver's records, newest first.
func (s *State) List(receiver int64, filter domain.ReadFilter, page, size int) domain.RecordPage {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	matched := s.matching(receiver, filter)

	total := len(matched)
	totalPages := (total + size - 1) / size
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return domain.RecordPage{
		Content: matched[start:end],
		Pagination: domain.Page{
			CurrentPage:   page,
			TotalPages:    totalPages,
			TotalElements: total,
			Size:          size,
		},
	}
}

// Unread returns every unread record for the receiver, newest first.
func (s *State) Unread(receiver int64) []domain.Record {
	return s.matching(receiver, domain.FilterUnread)
}

// SetRead flips isRead on the receiver's records and returns the ids
// actually changed. With isAll set the id list is ignored and the
// returned slice is empty, the contract's shorthand for "all of them".
func (s *State) SetRead(receiver int64, ids []int64, isAll, isRead bool) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isAll {
		for i := range s.records {
			if s.records[i].ReceiverID == receiver {
				s.records[i].IsRead = isRead
			}
		}
		return []int64{}
	}

	set := toSet(ids)
	var affected []int64
	for i := range s.records {
		rec := &s.records[i]
		if rec.ReceiverID != receiver {
			continue
		}
		if _, ok := set[rec.ID]; ok && rec.IsRead != isRead {
			rec.IsRead = isRead
			affected = append(affected, rec.ID)
		}
	}
	sort.Slice(affected, func(i, j int) bool { return affected[i] < affected[j] })
	return affected
}

// Delete removes the receiver's records and returns the ids actually
// removed; empty with isAll, same shorthand as SetRead.
func (s *State) Delete(receiver int64, ids []int64, isAll bool) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	if isAll {
		kept := s.records[:0]
		for _, rec := range s.records {
			if rec.ReceiverID != receiver {
				kept = append(kept, rec)
			}
		}
		s.records = kept
		return []int64{}
	}

	set := toSet(ids)
	var removed []int64
	kept := s.records[:0]
	for _, rec := range s.records {
		if _, ok := set[rec.ID]; ok && rec.ReceiverID == receiver {
			removed = append(removed, rec.ID)
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return removed
}

func (s *State) matching(receiver int64, filter domain.ReadFilter) []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.Record
	for _, rec := range s.records {
		if rec.ReceiverID != receiver {
			continue
		}
		switch filter {
		case domain.FilterRead:
			if !rec.IsRead {
				continue
			}
		case domain.FilterUnread:
			if rec.IsRead {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
