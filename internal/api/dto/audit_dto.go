package dto

import (
	"encoding/json"
	"time"
)

// AuditEntryResponse is one audit log row.
type AuditEntryResponse struct {
	ID               string    `json:"id"`
	ActorID          string    `json:"actor_id"`
	Action           string    `json:"action"`
	TargetUserID     *string   `json:"target_user_id"`
	TargetEntityID   *string   `json:"target_entity_id"`
	TargetEntityType *string   `json:"target_entity_type"`
	Details          string    `json:"details,omitempty"`
	IPAddress        *string   `json:"ip_address"`
	UserAgent        *string   `json:"user_agent"`
	CreatedAt        time.Time `json:"created_at"`
}

// RecordAuditRequest records a privileged action taken against a user account
// by another service or an admin tool.
type RecordAuditRequest struct {
	Action  string          `json:"action"`
	Details json.RawMessage `json:"details,omitempty"`
}
