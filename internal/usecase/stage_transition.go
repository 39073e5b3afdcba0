package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

// StageTransitionUseCase move e remove cards do quadro. Nada é alterado
// localmente antes do banco confirmar, então uma falha não exige rollback.
// Qualquer etapa pode ir para qualquer outra.
type StageTransitionUseCase struct {
	LeadRepo   entity.LeadRepositoryInterface
	Board      BoardReloader
	Notifier   Notifier
	Publisher  EventPublisher
	Metrics    PipelineMetrics
	Log        *logger.Logger
	InstanceID string
}

func NewStageTransitionUseCase(
	leadRepo entity.LeadRepositoryInterface,
	board BoardReloader,
	notifier Notifier,
	publisher EventPublisher,
	metrics PipelineMetrics,
	log *logger.Logger,
	instanceID string,
) *StageTransitionUseCase {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StageTransitionUseCase{
		LeadRepo:   leadRepo,
		Board:      board,
		Notifier:   notifier,
		Publisher:  publisher,
		Metrics:    metrics,
		Log:        log.With("service", "StageTransition"),
		InstanceID: instanceID,
	}
}

// MoveCard leva todos os leads por trás do card para a nova etapa.
func (uc *StageTransitionUseCase) MoveCard(ctx context.Context, cardID string, newStage entity.Stage) error {
	return uc.MoveCardFrom(ctx, cardID, "", newStage)
}

// MoveCardFrom é o MoveCard dizendo em qual coluna o card está. Obrigatório para
// um card agrupado que aparece em mais de uma coluna.
func (uc *StageTransitionUseCase) MoveCardFrom(ctx context.Context, cardID string, from, newStage entity.Stage) error {
	if _, err := entity.ParseStage(string(newStage)); err != nil {
		return uc.reject(ctx, "move", "INVALID_STAGE", "Etapa inválida", err.Error())
	}

	ref, err := uc.resolve(ctx, "move", cardID, from)
	if err != nil {
		return err
	}
	err = uc.mutate(ctx, "move", cardID, ref, func(ctx context.Context, leadID string) error {
		_, err := uc.LeadRepo.UpdateStage(ctx, leadID, newStage)
		return err
	})
	if err != nil {
		return err
	}

	notify(ctx, uc.Notifier, LevelSuccess, "Lead movido",
		fmt.Sprintf("Lead movido para %s.", newStage.Label()))
	uc.publish(ctx, entity.EventLeadStageChanged, ref.LeadIDs(), newStage)
	return nil
}

// DeleteCard remove os leads por trás do card. Um card expandido remove o lead
// inteiro, não apenas a simulação.
func (uc *StageTransitionUseCase) DeleteCard(ctx context.Context, cardID string) error {
	return uc.DeleteCardFrom(ctx, cardID, "")
}

// DeleteCardFrom remove só os leads do card na coluna informada.
func (uc *StageTransitionUseCase) DeleteCardFrom(ctx context.Context, cardID string, from entity.Stage) error {
	ref, err := uc.resolve(ctx, "delete", cardID, from)
	if err != nil {
		return err
	}
	if err := uc.mutate(ctx, "delete", cardID, ref, uc.LeadRepo.Delete); err != nil {
		return err
	}

	notify(ctx, uc.Notifier, LevelSuccess, "Lead removido", "O lead foi removido do funil.")
	uc.publish(ctx, entity.EventLeadDeleted, ref.LeadIDs(), "")
	return nil
}

func (uc *StageTransitionUseCase) resolve(ctx context.Context, op, cardID string, from entity.Stage) (entity.CardRef, error) {
	if from != "" {
		if _, err := entity.ParseStage(string(from)); err != nil {
			return nil, uc.reject(ctx, op, "INVALID_STAGE", "Etapa inválida", err.Error())
		}
	}

	ref, err := uc.Board.Resolve(cardID, from)
	if errors.Is(err, entity.ErrAmbiguousCard) {
		return nil, uc.reject(ctx, op, "AMBIGUOUS_CARD", "Card em mais de uma etapa",
			"Informe a etapa do card para concluir a alteração.")
	}
	if err != nil {
		return nil, err
	}
	return ref, nil
}

func (uc *StageTransitionUseCase) reject(ctx context.Context, op, code, title, message string) error {
	uc.Metrics.IncCardMutation(op, "rejected")
	notify(ctx, uc.Notifier, LevelError, title, message)
	return &DomainError{Code: code, Message: message}
}

func (uc *StageTransitionUseCase) mutate(
	ctx context.Context,
	op, cardID string,
	ref entity.CardRef,
	apply func(ctx context.Context, leadID string) error,
) error {
	leadIDs := ref.LeadIDs()
	if len(leadIDs) == 0 || leadIDs[0] == "" {
		return uc.reject(ctx, op, "CARD_NOT_FOUND", "Card não encontrado", "card não encontrado: "+cardID)
	}

	for i, leadID := range leadIDs {
		if err := apply(ctx, leadID); err != nil {
			uc.Metrics.IncCardMutation(op, "error")
			uc.Log.Error("falha ao alterar lead", "operation", op, "card_id", cardID, "lead_id", leadID, "error", err)
			notify(ctx, uc.Notifier, LevelError, "Não foi possível salvar",
				"A alteração não foi aplicada. Tente novamente.")

			// parte de um card agrupado já foi gravada, o quadro precisa refletir isso
			if i > 0 {
				_ = uc.Board.Reload(ctx)
			}

			if errors.Is(err, entity.ErrLeadNotFound) {
				return &DomainError{Code: "LEAD_NOT_FOUND", Message: "lead não encontrado: " + leadID}
			}
			return &TechnicalError{
				Code:    "LEAD_MUTATION_FAILED",
				Message: fmt.Sprintf("falha ao executar %s no lead %s: %v", op, leadID, err),
				Err:     err,
			}
		}
	}

	uc.Metrics.IncCardMutation(op, "success")

	// falha no reload já gera notificação própria e não desfaz a alteração
	if err := uc.Board.Reload(ctx); err != nil {
		uc.Log.Warn("alteração gravada mas o quadro não recarregou", "operation", op, "card_id", cardID, "error", err)
	}
	return nil
}

func (uc *StageTransitionUseCase) publish(ctx context.Context, t entity.PipelineEventType, leadIDs []string, stage entity.Stage) {
	if uc.Publisher == nil {
		return
	}
	for _, id := range leadIDs {
		event := entity.PipelineEvent{
			Type:       t,
			LeadID:     id,
			Stage:      stage,
			Origin:     uc.InstanceID,
			OccurredAt: time.Now(),
		}
		if err := uc.Publisher.PublishPipelineEvent(ctx, event); err != nil {
			uc.Log.Warn("alteração gravada, mas falha ao publicar evento", "type", t, "lead_id", id, "error", err)
		}
	}
}
