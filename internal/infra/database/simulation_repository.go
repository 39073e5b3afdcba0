package database

import (
	"context"
	"database/sql"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

type SimulationRepository struct {
	DB *sql.DB
}

func NewSimulationRepository(db *sql.DB) *SimulationRepository {
	return &SimulationRepository{DB: db}
}

// ListByPatientID devolve as simulações do paciente da mais antiga para a mais nova.
func (r *SimulationRepository) ListByPatientID(ctx context.Context, patientID string) ([]entity.Simulation, error) {
	query := `
		SELECT id, patient_id, treatment_type, final_price, created_at
		FROM simulations
		WHERE patient_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.DB.QueryContext(ctx, query, patientID)
	if err != nil {
		if isInvalidUUID(err) {
			return []entity.Simulation{}, nil
		}
		return nil, err
	}
	defer rows.Close()

	sims := []entity.Simulation{}
	for rows.Next() {
		var (
			s    entity.Simulation
			kind sql.NullString
		)
		if err := rows.Scan(&s.ID, &s.PatientID, &kind, &s.FinalPrice, &s.CreatedAt); err != nil {
			return nil, err
		}
		s.TreatmentType = entity.TreatmentType(kind.String)
		sims = append(sims, s)
	}
	return sims, rows.Err()
}
