package entity

import "time"

type PipelineEventType string

const (
	EventBudgetAccepted   PipelineEventType = "budget.accepted"
	EventLeadCreated      PipelineEventType = "lead.created"
	EventLeadStageChanged PipelineEventType = "lead.stage_changed"
	EventLeadDeleted      PipelineEventType = "lead.deleted"
)

// PipelineEvent é a notificação fora de banda que leva o host a recarregar o quadro.
type PipelineEvent struct {
	Type       PipelineEventType `json:"type"`
	LeadID     string            `json:"lead_id,omitempty"`
	Stage      Stage             `json:"stage,omitempty"`
	Origin     string            `json:"origin"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// TriggersReload diz se o tipo de evento é conhecido pelo quadro.
func (e PipelineEvent) TriggersReload() bool {
	switch e.Type {
	case EventBudgetAccepted, EventLeadCreated, EventLeadStageChanged, EventLeadDeleted:
		return true
	}
	return false
}
