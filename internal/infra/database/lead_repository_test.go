package database

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
)

// fakeRow entrega os valores como o driver entregaria, na ordem de leadColumns.
type fakeRow []any

func (r fakeRow) Scan(dest ...any) error {
	if len(dest) != len(r) {
		return fmt.Errorf("esperava %d colunas, recebeu %d", len(r), len(dest))
	}
	for i, d := range dest {
		switch d := d.(type) {
		case sql.Scanner:
			if err := d.Scan(r[i]); err != nil {
				return err
			}
		case *string:
			d2, ok := r[i].(string)
			if !ok {
				return fmt.Errorf("coluna %d: %T em *string", i, r[i])
			}
			*d = d2
		case *time.Time:
			*d = r[i].(time.Time)
		default:
			return fmt.Errorf("coluna %d: destino %T não suportado", i, d)
		}
	}
	return nil
}

func leadRow(value any) fakeRow {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return fakeRow{"l1", "Maria", nil, nil, nil, nil, nil, "simulacao", value, now, now}
}

func TestScanLeadNullOpportunityValueIsZero(t *testing.T) {
	lead, err := scanLead(leadRow(nil))

	require.NoError(t, err)
	assert.True(t, lead.OpportunityValue.IsZero())
	assert.Equal(t, "0", lead.OpportunityValue.String())
	assert.Empty(t, lead.Email)
	assert.Empty(t, lead.PatientID)
	assert.False(t, lead.HasPatient())
	assert.Equal(t, entity.StageSimulacao, lead.Stage)
}

func TestScanLeadOpportunityValue(t *testing.T) {
	lead, err := scanLead(leadRow("1250.50"))

	require.NoError(t, err)
	assert.Equal(t, "1250.5", lead.OpportunityValue.String())
}

func TestScanLeadPropagatesScanError(t *testing.T) {
	_, err := scanLead(leadRow("não é número"))

	assert.Error(t, err)
}
