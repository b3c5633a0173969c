package dto

import (
	"time"

	"ai-loanengine-be/pkg/store"
)

type CreateSessionResponse struct {
	Id string `json:"id"`
}

// SessionId is optional: an empty or expired id starts a new session
// and the response carries the id to use from then on.
type SendMessageRequest struct {
	SessionId string `json:"session_id"`
	Text      string `json:"text" validate:"required,max=4000"`
}

type SendMessageResponse struct {
	SessionId string           `json:"session_id"`
	ReplyText string           `json:"reply_text"`
	Phase     string           `json:"phase"`
	Decision  *DecisionDTO     `json:"decision,omitempty"`
	ToolCalls []store.ToolCall `json:"tool_calls,omitempty"`
}

type DecisionDTO struct {
	Outcome      string   `json:"outcome"`
	Violated     []string `json:"violated,omitempty"`
	Marginal     []string `json:"marginal,omitempty"`
	MissingFacts []string `json:"missing_facts,omitempty"`
	Remediation  []string `json:"remediation,omitempty"`
	UsedDefaults bool     `json:"used_defaults"`
}

type GetHistoryResponse struct {
	SessionId string           `json:"session_id"`
	Phase     string           `json:"phase"`
	Turns     []HistoryTurnDTO `json:"turns"`
}

type HistoryTurnDTO struct {
	Id        string           `json:"id"`
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	CreatedAt time.Time        `json:"created_at"`
	ToolCalls []store.ToolCall `json:"tool_calls,omitempty"`
}
