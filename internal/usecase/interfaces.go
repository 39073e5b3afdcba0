package usecase

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type NotificationLevel string

const (
	LevelSuccess NotificationLevel = "success"
	LevelWarning NotificationLevel = "warning"
	LevelError   NotificationLevel = "error"
)

// Notification é o aviso exibido para o usuário do painel.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	At      time.Time         `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// EventPublisher avisa as outras instâncias que o funil mudou.
type EventPublisher interface {
	PublishPipelineEvent(ctx context.Context, event entity.PipelineEvent) error
}

type PipelineMetrics interface {
	ObserveReload(outcome string, duration time.Duration)
	IncStaleReload()
	IncDegradedLookup(view string)
	IncCardMutation(operation, outcome string)
}

// Reloader recalcula o quadro depois de uma escrita local.
type Reloader interface {
	Reload(ctx context.Context) error
}

// BoardReloader é o que o gerenciador de transições precisa do quadro.
// Stage vazio resolve o id em qualquer etapa.
type BoardReloader interface {
	Reloader
	Resolve(cardID string, stage entity.Stage) (entity.CardRef, error)
}

type nopMetrics struct{}

func (nopMetrics) ObserveReload(string, time.Duration) {}
func (nopMetrics) IncStaleReload()                     {}
func (nopMetrics) IncDegradedLookup(string)            {}
func (nopMetrics) IncCardMutation(string, string)      {}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notification) {}

func notify(ctx context.Context, n Notifier, level NotificationLevel, title, message string) {
	n.Notify(ctx, Notification{Level: level, Title: title, Message: message, At: time.Now()})
}
