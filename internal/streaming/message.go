// Package streaming broadcasts run step events to subscribed WebSocket
// clients, adapted from the teacher's execution-event hub
// (internal/infrastructure/websocket/{hub,client,message}.go) onto the
// core's tenant_id/run_id keying instead of workflow_id/execution_id.
package streaming

import "time"

// RunEvent is one run-step lifecycle notification sent server -> client,
// derived from the orchestrator's "run.step.<name>.<phase>" audit events
// (spec §4.8, DOMAIN STACK).
type RunEvent struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	TenantID  string    `json:"tenant_id"`
	RunID     string    `json:"run_id"`
	StepName  string    `json:"step_name,omitempty"`
	Phase     string    `json:"phase,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// Command types (client -> server).
const (
	CmdSubscribe   = "subscribe"
	CmdUnsubscribe = "unsubscribe"
)

// Command is a client -> server subscription request.
type Command struct {
	Action string `json:"action"`
	RunID  string `json:"run_id,omitempty"`
}

// Response acknowledges a Command.
type Response struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

func newSuccessResponse(responseType, message string) *Response {
	return &Response{Type: responseType, Success: true, Message: message}
}

func newErrorResponse(responseType, errorMsg string) *Response {
	return &Response{Type: responseType, Success: false, Error: errorMsg}
}
