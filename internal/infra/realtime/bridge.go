package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

var ErrMalformedEvent = errors.New("evento malformado")

// Outcome diz o que o bridge fez com um evento.
type Outcome string

const (
	OutcomeReloaded Outcome = "reloaded"
	OutcomeSelf     Outcome = "self"
	OutcomeIgnored  Outcome = "ignored"
)

type Reloader interface {
	Reload(ctx context.Context) error
}

// Bridge traduz eventos externos em reloads do quadro. Não lê o payload além
// do necessário: o evento só avisa que algo mudou, o banco continua sendo a fonte.
type Bridge struct {
	Board      Reloader
	InstanceID string
	Log        *logger.Logger
}

func NewBridge(board Reloader, instanceID string, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Nop()
	}
	return &Bridge{
		Board:      board,
		InstanceID: instanceID,
		Log:        log.With("service", "RealtimeBridge"),
	}
}

// Handle decodifica e trata um evento. Payload inválido devolve ErrMalformedEvent,
// falha no reload devolve o erro do quadro.
func (b *Bridge) Handle(ctx context.Context, body []byte) (Outcome, error) {
	var event entity.PipelineEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.Type == "" {
		return "", fmt.Errorf("%w: tipo ausente", ErrMalformedEvent)
	}
	return b.HandleEvent(ctx, event)
}

func (b *Bridge) HandleEvent(ctx context.Context, event entity.PipelineEvent) (Outcome, error) {
	if !event.TriggersReload() {
		b.Log.Debug("evento desconhecido ignorado", "type", event.Type)
		return OutcomeIgnored, nil
	}

	// a alteração local já recarregou o quadro
	if event.Origin != "" && event.Origin == b.InstanceID {
		return OutcomeSelf, nil
	}

	b.Log.Info("evento recebido, recarregando quadro", "type", event.Type, "lead_id", event.LeadID, "origin", event.Origin)
	if err := b.Board.Reload(ctx); err != nil {
		return "", err
	}
	return OutcomeReloaded, nil
}
