package todo

import "time"

// Closed value sets for status and priority. The validator enforces them at
// the transport boundary; the repository trusts its input.
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Todo is an owner-scoped task record.
type Todo struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	DueDate     time.Time `json:"due_date"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Query is the resolved shape of a list request after the transport layer
// has parsed and clamped the raw parameters.
type Query struct {
	OwnerID  string // empty means all owners (admin listing)
	Status   string
	Priority string
	Tag      string
	Search   string
	Page     int
	Limit    int
	Sort     string
	Order    string
}

// Page describes the pagination block returned with listings.
type Page struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// ListResult is the cacheable payload of a list query.
type ListResult struct {
	Todos      []Todo `json:"todos"`
	Pagination Page   `json:"pagination"`
}
