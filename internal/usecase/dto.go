package usecase

import "github.com/shopspring/decimal"

type CreateLeadInput struct {
	Name             string           `json:"name"`
	Email            string           `json:"email"`
	Phone            string           `json:"phone"`
	Source           string           `json:"source"`
	PatientID        string           `json:"patient_id"`
	TreatmentType    string           `json:"treatment_type"`
	OpportunityValue *decimal.Decimal `json:"opportunity_value"`
}

type CreateLeadOutput struct {
	ID    string `json:"id"`
	Stage string `json:"stage"`
	Msg   string `json:"msg"`
}
