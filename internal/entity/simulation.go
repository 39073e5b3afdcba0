package entity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Simulation é imutável depois de criada. FinalPrice pode vir nulo.
type Simulation struct {
	ID            string              `json:"id"`
	PatientID     string              `json:"patient_id"`
	TreatmentType TreatmentType       `json:"treatment_type,omitempty"`
	FinalPrice    decimal.NullDecimal `json:"final_price"`
	CreatedAt     time.Time           `json:"created_at"`
}

// Price devolve o preço final, tratando nulo como zero.
func (s Simulation) Price() decimal.Decimal {
	if !s.FinalPrice.Valid {
		return decimal.Zero
	}
	return s.FinalPrice.Decimal
}

type SimulationRepositoryInterface interface {
	ListByPatientID(ctx context.Context, patientID string) ([]Simulation, error)
}
