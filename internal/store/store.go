// Package store holds the in-memory reconciled collection of
// notification records. Every mutating operation is confirm-then-
// mutate: the remote authority is asked first, and local state changes
// only on a successful response, in one atomic update. The store never
// applies optimistic writes, so displayed state cannot diverge from
// server truth.
package store

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/homepoint/crm-notify/internal/domain"
)

// Remote is the port to the remote authority. Implemented by the REST
// client in infrastructure/rest; tests substitute fakes.
type Remote interface {
	List(ctx context.Context, filter domain.ReadFilter, page, size int) (*domain.RecordPage, error)
	Unread(ctx context.Context) ([]domain.Record, error)
	MarkRead(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error)
	MarkUnread(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error)
	Delete(ctx context.Context, ids []int64, isAll bool) (*domain.MutationResult, error)
}

// Store is the process-wide notification collection.
type Store struct {
	remote Remote

	mu      sync.Mutex
	records []domain.Record
	page    domain.Page
	subs    map[uuid.UUID]func()
}

// New creates an empty Store backed by the given remote authority.
func New(remote Remote) *Store {
	return &Store{
		remote: remote,
		subs:   make(map[uuid.UUID]func()),
	}
}

// Subscribe registers fn to run after every successful local mutation.
// The returned closure unsubscribes; it is safe to call more than once.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	id := uuid.New()
	s.mu.Lock()
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Snapshot returns a copy of the ordered collection, most recent first.
func (s *Store) Snapshot() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
}

// UnreadCount is derived from the records on every call, never cached.
func (s *Store) UnreadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for i := range s.records {
		if !s.records[i].IsRead {
			count++
		}
	}
	return count
}

// Len returns the number of records in the collection.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Contains reports whether a record with the given id is present.
func (s *Store) Contains(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOfLocked(id) >= 0
}

// Pagination returns the metadata from the most recent page fetch.
func (s *Store) Pagination() domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

// Ingest inserts a pushed record at the head of the collection.
// Idempotent: a record whose id is already present is a no-op, and
// Ingest reports whether the record was new.
func (s *Store) Ingest(rec domain.Record) bool {
	s.mu.Lock()
	if s.indexOfLocked(rec.ID) >= 0 {
		s.mu.Unlock()
		return false
	}
	rec.Category = rec.Category.Normalize()
	s.records = append([]domain.Record{rec}, s.records...)
	s.mu.Unlock()

	log.Debug().Int64("id", rec.ID).Str("category", string(rec.Category)).Msg("notification ingested")
	s.notify()
	return true
}

// FetchPage loads one page from the remote authority. Page 1 replaces
// the collection; later pages append only ids not already present.
// Concurrent fetches are not sequenced: callers that need ordered
// application must serialize their calls.
func (s *Store) FetchPage(ctx context.Context, filter domain.ReadFilter, page, size int) error {
	result, err := s.remote.List(ctx, filter, page, size)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if page <= 1 {
		s.records = append([]domain.Record(nil), result.Content...)
	} else {
		for _, rec := range result.Content {
			if s.indexOfLocked(rec.ID) < 0 {
				s.records = append(s.records, rec)
			}
		}
	}
	s.page = result.Pagination
	s.mu.Unlock()

	s.notify()
	return nil
}

// FetchUnread reconciles with the remote authority after a gap: all
// currently unread records are fetched and the unknown ones prepended,
// preserving their server-provided order. Known records are untouched.
func (s *Store) FetchUnread(ctx context.Context) error {
	unread, err := s.remote.Unread(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	fresh := make([]domain.Record, 0, len(unread))
	for _, rec := range unread {
		if s.indexOfLocked(rec.ID) < 0 {
			fresh = append(fresh, rec)
		}
	}
	changed := len(fresh) > 0
	if changed {
		s.records = append(fresh, s.records...)
	}
	s.mu.Unlock()

	if changed {
		log.Debug().Int("count", len(fresh)).Msg("unread reconciliation added records")
		s.notify()
	}
	return nil
}

// MarkRead marks a single record as read.
func (s *Store) MarkRead(ctx context.Context, id int64) error {
	return s.MarkManyRead(ctx, []int64{id})
}

// MarkUnread marks a single record as unread.
func (s *Store) MarkUnread(ctx context.Context, id int64) error {
	return s.MarkManyUnread(ctx, []int64{id})
}

// MarkManyRead marks the given records as read. Only ids the server
// confirms are updated locally; a response without ids defaults to the
// requested set.
func (s *Store) MarkManyRead(ctx context.Context, ids []int64) error {
	result, err := s.remote.MarkRead(ctx, ids, false)
	if err != nil {
		return err
	}
	s.applyRead(confirmedOr(result, ids), true)
	return nil
}

// MarkManyUnread marks the given records as unread.
func (s *Store) MarkManyUnread(ctx context.Context, ids []int64) error {
	result, err := s.remote.MarkUnread(ctx, ids, false)
	if err != nil {
		return err
	}
	s.applyRead(confirmedOr(result, ids), false)
	return nil
}

// MarkAllRead marks every record as read. If the server confirms a
// non-empty id list, only those are updated; an empty list means all.
func (s *Store) MarkAllRead(ctx context.Context) error {
	result, err := s.remote.MarkRead(ctx, nil, true)
	if err != nil {
		return err
	}
	s.applyReadAll(result, true)
	return nil
}

// MarkAllUnread marks every record as unread.
func (s *Store) MarkAllUnread(ctx context.Context) error {
	result, err := s.remote.MarkUnread(ctx, nil, true)
	if err != nil {
		return err
	}
	s.applyReadAll(result, false)
	return nil
}

// Remove deletes a single record.
func (s *Store) Remove(ctx context.Context, id int64) error {
	return s.RemoveMany(ctx, []int64{id})
}

// RemoveMany deletes the given records. Only server-confirmed ids are
// removed locally, so a partial confirmation leaves the rest in place.
func (s *Store) RemoveMany(ctx context.Context, ids []int64) error {
	result, err := s.remote.Delete(ctx, ids, false)
	if err != nil {
		return err
	}
	s.removeIDs(confirmedOr(result, ids))
	return nil
}

// ClearAll deletes every record. A non-empty confirmed id list removes
// only those; an empty list empties the collection.
func (s *Store) ClearAll(ctx context.Context) error {
	result, err := s.remote.Delete(ctx, nil, true)
	if err != nil {
		return err
	}

	if result != nil && len(result.NotificationIDs) > 0 {
		s.removeIDs(result.NotificationIDs)
		return nil
	}

	s.mu.Lock()
	s.records = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// --- internals ---

func (s *Store) applyRead(ids []int64, isRead bool) {
	if len(ids) == 0 {
		return
	}
	set := toSet(ids)

	s.mu.Lock()
	for i := range s.records {
		if _, ok := set[s.records[i].ID]; ok {
			s.records[i].IsRead = isRead
		}
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) applyReadAll(result *domain.MutationResult, isRead bool) {
	if result != nil && len(result.NotificationIDs) > 0 {
		s.applyRead(result.NotificationIDs, isRead)
		return
	}

	s.mu.Lock()
	for i := range s.records {
		s.records[i].IsRead = isRead
	}
	s.mu.Unlock()
	s.notify()
}

func (s *Store) removeIDs(ids []int64) {
	if len(ids) == 0 {
		return
	}
	set := toSet(ids)

	s.mu.Lock()
	kept := s.records[:0]
	for _, rec := range s.records {
		if _, ok := set[rec.ID]; !ok {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.mu.Unlock()
	s.notify()
}

// notify runs subscribers outside the lock so a subscriber may read
// back derived state without deadlocking.
func (s *Store) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Store) indexOfLocked(id int64) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

func confirmedOr(result *domain.MutationResult, requested []int64) []int64 {
	if result != nil && len(result.NotificationIDs) > 0 {
		return result.NotificationIDs
	}
	return requested
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
