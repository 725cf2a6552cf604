package domain

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxReplyLength = 10000
	MaxNoteLength  = 5000
)

// TicketReply is a customer-visible response appended to a ticket.
type TicketReply struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

// TicketNote is an internal annotation. Notes are never shown to the submitter.
type TicketNote struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
}

func validateMessage(kind string, content, authorID string, max int) (string, string, error) {
	var p problems
	content = strings.TrimSpace(content)
	authorID = strings.TrimSpace(authorID)
	switch {
	case content == "":
		p.add(kind + " content is required")
	case utf8.RuneCountInString(content) > max:
		p.add(kind + " content cannot exceed " + strconv.Itoa(max) + " characters")
	}
	if authorID == "" {
		p.add("Author ID is required")
	}
	return content, authorID, p.err()
}
