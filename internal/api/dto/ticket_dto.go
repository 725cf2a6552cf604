package dto

import (
	"time"

	"github.com/lankaconnect/support-service/internal/domain"
)

// ContactRequest is the public contact form payload.
type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactResponse confirms a submission.
type ContactResponse struct {
	ReferenceID string              `json:"reference_id"`
	Status      domain.TicketStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
}

// TicketStatusResponse is the public view of a ticket. It never carries notes.
type TicketStatusResponse struct {
	ReferenceID string              `json:"reference_id"`
	Subject     string              `json:"subject"`
	Status      domain.TicketStatus `json:"status"`
	StatusLabel string              `json:"status_label"`
	ReplyCount  int                 `json:"reply_count"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// TicketSummary is one row of the staff queue.
type TicketSummary struct {
	ID             string                `json:"id"`
	ReferenceID    string                `json:"reference_id"`
	SubmitterName  string                `json:"submitter_name"`
	SubmitterEmail string                `json:"submitter_email"`
	Subject        string                `json:"subject"`
	Status         domain.TicketStatus   `json:"status"`
	Priority       domain.TicketPriority `json:"priority"`
	AssignedTo     *string               `json:"assigned_to"`
	ReplyCount     int                   `json:"reply_count"`
	CreatedAt      time.Time             `json:"created_at"`
	UpdatedAt      time.Time             `json:"updated_at"`
}

// TicketDetailResponse provides full ticket info for staff.
type TicketDetailResponse struct {
	TicketSummary
	Message string            `json:"message"`
	Version int               `json:"version"`
	Replies []MessageResponse `json:"replies"`
	Notes   []MessageResponse `json:"notes"`
}

// MessageResponse represents a reply or an internal note.
type MessageResponse struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateMessageRequest payload for replies and notes.
type CreateMessageRequest struct {
	Content string `json:"content"`
}

// UpdateStatusRequest payload. Status is the enum name, e.g. "InProgress".
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority string `json:"priority"`
}

// AssignRequest payload.
type AssignRequest struct {
	AgentID string `json:"agent_id"`
}

// TicketStatsResponse feeds the admin dashboard.
type TicketStatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Unassigned int            `json:"unassigned"`
}

// Pagination describes a page of results.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes the page count for total items.
func NewPagination(page, pageSize, total int) Pagination {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	return Pagination{Page: page, PageSize: pageSize, TotalCount: total, TotalPages: pages}
}
