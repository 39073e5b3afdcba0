package entity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrLeadNotFound         = errors.New("lead não encontrado")
	ErrLeadAlreadyExists    = errors.New("lead já cadastrado")
	ErrInvalidStage         = errors.New("etapa inválida")
	ErrInvalidTreatmentType = errors.New("tipo de tratamento inválido")
	ErrMalformedLead        = errors.New("registro de lead malformado")
)

// Stage é a etapa do funil comercial em que o lead está.
type Stage string

const (
	StageSimulacao       Stage = "simulacao"
	StageConsultaTecnica Stage = "consulta_tecnica"
	StageFechamento      Stage = "fechamento"
	StageAcompanhamento  Stage = "acompanhamento"
)

// Stages lista as colunas do quadro na ordem em que são exibidas.
var Stages = []Stage{
	StageSimulacao,
	StageConsultaTecnica,
	StageFechamento,
	StageAcompanhamento,
}

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStage, s)
}

// TreatmentType vazio significa "sem tratamento definido" (NULL no banco).
type TreatmentType string

const (
	TreatmentFacetas     TreatmentType = "facetas"
	TreatmentClareamento TreatmentType = "clareamento"
)

func ParseTreatmentType(s string) (TreatmentType, error) {
	switch TreatmentType(s) {
	case "", TreatmentFacetas, TreatmentClareamento:
		return TreatmentType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTreatmentType, s)
}

// Lead é uma oportunidade comercial da clínica.
// PatientID e TreatmentType vazios equivalem a NULL.
type Lead struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Email            string          `json:"email,omitempty"`
	Phone            string          `json:"phone,omitempty"`
	Source           string          `json:"source,omitempty"`
	PatientID        string          `json:"patient_id,omitempty"`
	TreatmentType    TreatmentType   `json:"treatment_type,omitempty"`
	Stage            Stage           `json:"stage"`
	OpportunityValue decimal.Decimal `json:"opportunity_value"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (l Lead) HasPatient() bool {
	return l.PatientID != ""
}

// LeadsByStage é o retorno da consulta agrupada por etapa.
// Cada slice mantém a ordem devolvida pelo banco.
type LeadsByStage map[Stage][]Lead

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	ListGroupedByStage(ctx context.Context) (LeadsByStage, error)
	ListAll(ctx context.Context, stages ...Stage) ([]Lead, error)
	UpdateStage(ctx context.Context, leadID string, stage Stage) (*Lead, error)
	Delete(ctx context.Context, leadID string) error
}

var stageLabels = map[Stage]string{
	StageSimulacao:       "Simulação",
	StageConsultaTecnica: "Consulta Técnica",
	StageFechamento:      "Fechamento",
	StageAcompanhamento:  "Acompanhamento",
}

// Label é o nome da coluna como aparece para a clínica.
func (s Stage) Label() string {
	if l, ok := stageLabels[s]; ok {
		return l
	}
	return string(s)
}
