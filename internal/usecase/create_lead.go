package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

// CreateLeadUseCase é a entrada de leads no funil. Todo lead nasce em simulacao.
// O evento publicado sai com a origem desta instância e o bridge o ignora aqui,
// então o próprio use case recarrega o quadro local.
type CreateLeadUseCase struct {
	Repo       entity.LeadRepositoryInterface
	Board      Reloader
	Publisher  EventPublisher
	Log        *logger.Logger
	InstanceID string
}

func NewCreateLeadUseCase(
	repo entity.LeadRepositoryInterface,
	board Reloader,
	publisher EventPublisher,
	log *logger.Logger,
	instanceID string,
) *CreateLeadUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &CreateLeadUseCase{
		Repo:       repo,
		Board:      board,
		Publisher:  publisher,
		Log:        log.With("service", "CreateLead"),
		InstanceID: instanceID,
	}
}

func (uc *CreateLeadUseCase) Execute(ctx context.Context, input CreateLeadInput) (*CreateLeadOutput, error) {
	validationErrors := ValidateCreateLeadInput(input)
	if len(validationErrors) > 0 {
		msgs := make([]string, 0, len(validationErrors))
		for _, e := range validationErrors {
			msgs = append(msgs, e.Field+" ("+e.Message+")")
		}
		return nil, &DomainError{
			Code:    "VALIDATION_ERROR",
			Message: "validation failed: " + strings.Join(msgs, ", "),
		}
	}

	value := decimal.Zero
	if input.OpportunityValue != nil {
		value = *input.OpportunityValue
	}

	now := time.Now()
	lead := &entity.Lead{
		ID:               uuid.New().String(),
		Name:             strings.TrimSpace(input.Name),
		Email:            strings.TrimSpace(input.Email),
		Phone:            input.Phone,
		Source:           input.Source,
		PatientID:        strings.TrimSpace(input.PatientID),
		TreatmentType:    entity.TreatmentType(input.TreatmentType),
		Stage:            entity.StageSimulacao,
		OpportunityValue: value,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		if errors.Is(err, entity.ErrLeadAlreadyExists) {
			return nil, &DomainError{Code: "LEAD_ALREADY_EXISTS", Message: err.Error()}
		}
		return nil, &TechnicalError{
			Code:    "DATABASE_ERROR",
			Message: "failed to persist lead: " + err.Error(),
			Err:     err,
		}
	}

	uc.Log.Info("lead criado", "lead_id", lead.ID, "source", lead.Source)

	// falha no reload já gera notificação própria e não desfaz o cadastro
	if uc.Board != nil {
		if err := uc.Board.Reload(ctx); err != nil {
			uc.Log.Warn("lead salvo mas o quadro não recarregou", "lead_id", lead.ID, "error", err)
		}
	}

	if uc.Publisher != nil {
		event := entity.PipelineEvent{
			Type:       entity.EventLeadCreated,
			LeadID:     lead.ID,
			Stage:      lead.Stage,
			Origin:     uc.InstanceID,
			OccurredAt: now,
		}
		if err := uc.Publisher.PublishPipelineEvent(ctx, event); err != nil {
			uc.Log.Warn("lead salvo, mas falha ao publicar evento", "lead_id", lead.ID, "error", err)
		}
	}

	return &CreateLeadOutput{
		ID:    lead.ID,
		Stage: string(lead.Stage),
		Msg:   "Lead cadastrado com sucesso!",
	}, nil
}
