package model

import (
	"time"
)

// AuditLog is one recorded gateway operation.
type AuditLog struct {
	ID        string `json:"id"`
	TenantID  string `json:"tenant_id"`
	Method    string `json:"method"`
	Path      string `json:"path"`
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`

	RequestBody   string `json:"request_body"`
	RequestHeader string `json:"request_header"`

	StatusCode   int    `json:"status_code"`
	ResponseBody string `json:"response_body"`
	LatencyMs    int64  `json:"latency_ms"`

	// Business context: action kinds, nonces, signature digests,
	// adapter rejection reasons. Never raw keys.
	Context map[string]interface{} `json:"context"`

	CreatedAt time.Time `json:"created_at"`
}
