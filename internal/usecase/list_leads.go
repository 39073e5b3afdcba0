package usecase

import (
	"context"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

// ListLeadsUseCase atende as listas fora do quadro. Sem etapas, devolve todos.
type ListLeadsUseCase struct {
	Repo entity.LeadRepositoryInterface
}

func NewListLeadsUseCase(repo entity.LeadRepositoryInterface) *ListLeadsUseCase {
	return &ListLeadsUseCase{Repo: repo}
}

func (uc *ListLeadsUseCase) Execute(ctx context.Context, stages []string) ([]entity.Lead, error) {
	parsed := make([]entity.Stage, 0, len(stages))
	for _, s := range stages {
		st, err := entity.ParseStage(s)
		if err != nil {
			return nil, &DomainError{Code: "INVALID_STAGE", Message: err.Error()}
		}
		parsed = append(parsed, st)
	}

	leads, err := uc.Repo.ListAll(ctx, parsed...)
	if err != nil {
		return nil, &TechnicalError{Code: "DATABASE_ERROR", Message: "failed to list leads: " + err.Error(), Err: err}
	}
	return leads, nil
}
