package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

const leadColumns = `id, name, email, phone, source, patient_id, treatment_type, stage, opportunity_value, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, phone, source, patient_id, treatment_type, stage, opportunity_value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.Name,
		nullString(lead.Email),
		nullString(lead.Phone),
		nullString(lead.Source),
		nullString(lead.PatientID),
		nullString(string(lead.TreatmentType)),
		string(lead.Stage),
		lead.OpportunityValue,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return entity.ErrLeadAlreadyExists
		}
		return err
	}
	return nil
}

// ListGroupedByStage devolve as quatro etapas sempre presentes, mesmo vazias.
// Um lead com etapa fora do conjunto conhecido invalida a consulta inteira.
func (r *LeadRepository) ListGroupedByStage(ctx context.Context) (entity.LeadsByStage, error) {
	query := `SELECT ` + leadColumns + ` FROM leads ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grouped := make(entity.LeadsByStage, len(entity.Stages))
	for _, st := range entity.Stages {
		grouped[st] = []entity.Lead{}
	}

	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		if _, ok := grouped[lead.Stage]; !ok {
			return nil, fmt.Errorf("%w: lead %s com etapa %q", entity.ErrMalformedLead, lead.ID, lead.Stage)
		}
		grouped[lead.Stage] = append(grouped[lead.Stage], lead)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return grouped, nil
}

// ListAll lista os leads filtrando pelas etapas informadas. Sem etapas, devolve todos.
func (r *LeadRepository) ListAll(ctx context.Context, stages ...entity.Stage) ([]entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads`
	var args []any
	if len(stages) > 0 {
		names := make([]string, 0, len(stages))
		for _, st := range stages {
			names = append(names, string(st))
		}
		query += ` WHERE stage = ANY($1)`
		args = append(args, pq.Array(names))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := []entity.Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) UpdateStage(ctx context.Context, leadID string, stage entity.Stage) (*entity.Lead, error) {
	query := `
		UPDATE leads SET stage = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + leadColumns

	lead, err := scanLead(r.DB.QueryRowContext(ctx, query, leadID, string(stage)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
			return nil, entity.ErrLeadNotFound
		}
		return nil, err
	}
	return &lead, nil
}

func (r *LeadRepository) Delete(ctx context.Context, leadID string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, leadID)
	if err != nil {
		if isInvalidUUID(err) {
			return entity.ErrLeadNotFound
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (entity.Lead, error) {
	var (
		lead                                entity.Lead
		email, phone, source, patient, kind sql.NullString
		stage                               string
		value                               decimal.NullDecimal
	)
	err := row.Scan(
		&lead.ID,
		&lead.Name,
		&email,
		&phone,
		&source,
		&patient,
		&kind,
		&stage,
		&value,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return entity.Lead{}, err
	}
	lead.Email = email.String
	lead.Phone = phone.String
	lead.Source = source.String
	lead.PatientID = patient.String
	lead.TreatmentType = entity.TreatmentType(kind.String)
	lead.Stage = entity.Stage(stage)
	// lead sem valor de oportunidade conta como zero nos somatórios
	lead.OpportunityValue = decimal.Zero
	if value.Valid {
		lead.OpportunityValue = value.Decimal
	}
	return lead, nil
}

// 22P02: id que não é uuid válido. Para quem chamou, o lead não existe.
func isInvalidUUID(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22P02"
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
