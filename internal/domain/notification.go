package domain

// Category classifies a notification for display purposes.
type Category string

const (
	CategoryInfo    Category = "INFO"
	CategorySuccess Category = "SUCCESS"
	CategoryWarning Category = "WARNING"
	CategoryError   Category = "ERROR"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryInfo, CategorySuccess, CategoryWarning, CategoryError:
		return true
	}
	return false
}

// Normalize maps unknown categories to INFO so a new server-side
// category never breaks an older client.
func (c Category) Normalize() Category {
	if c.Valid() {
		return c
	}
	return CategoryInfo
}

// Record is the core notification entity as it appears on the wire,
// both in REST payloads and in push frames.
type Record struct {
	ID         int64    `json:"id"`
	ReceiverID int64    `json:"receiverId"`
	Category   Category `json:"type"`
	Content    string   `json:"content"`
	TargetURL  string   `json:"url,omitempty"`
	IsRead     bool     `json:"isRead"`
	CreatedAt  string   `json:"createdAt"`
}

// ReadFilter narrows a list fetch to read or unread records.
type ReadFilter string

const (
	FilterAll    ReadFilter = "all"
	FilterRead   ReadFilter = "read"
	FilterUnread ReadFilter = "unread"
)

// Query reports the value to send as the `filter` query parameter.
// FilterAll means no filtering and maps to the empty string.
func (f ReadFilter) Query() string {
	if f == FilterRead || f == FilterUnread {
		return string(f)
	}
	return ""
}

// Page holds server-provided pagination metadata for a list fetch.
type Page struct {
	CurrentPage   int `json:"currentPage"`
	TotalPages    int `json:"totalPages"`
	TotalElements int `json:"totalElements"`
	Size          int `json:"size"`
}

// RecordPage is one page of records plus its pagination metadata.
type RecordPage struct {
	Content    []Record `json:"content"`
	Pagination Page     `json:"pagination"`
}
