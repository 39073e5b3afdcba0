package entity

import (
	"errors"
	"strings"
)

// ErrAmbiguousCard indica um id de card que aparece em mais de uma etapa e
// foi usado sem dizer de qual etapa.
var ErrAmbiguousCard = errors.New("card aparece em mais de uma etapa")

// ExpandedDelimiter separa o id do lead do id da simulação nos cards expandidos.
const ExpandedDelimiter = "-sim-"

const nullKey = "null"

// CardRef identifica de onde um card do quadro veio. É uma união fechada:
// RawRef, ExpandedRef ou GroupedRef.
type CardRef interface {
	// CardID é o id exibido no quadro.
	CardID() string
	// LeadIDs são os leads reais por trás do card, na ordem do banco.
	LeadIDs() []string
	cardRef()
}

// RawRef é um lead sem expansão nem agrupamento.
type RawRef struct {
	LeadID string
}

func (r RawRef) CardID() string    { return r.LeadID }
func (r RawRef) LeadIDs() []string { return []string{r.LeadID} }
func (RawRef) cardRef()            {}

// ExpandedRef é um card por simulação: leadId-sim-simulationId.
type ExpandedRef struct {
	LeadID       string
	SimulationID string
}

func (r ExpandedRef) CardID() string    { return r.LeadID + ExpandedDelimiter + r.SimulationID }
func (r ExpandedRef) LeadIDs() []string { return []string{r.LeadID} }
func (ExpandedRef) cardRef()            {}

// GroupedRef dobra todos os leads de um par (paciente, tratamento) em um card.
// O id exibido (patientId-treatmentType) não é reversível sozinho, por isso a
// referência carrega os leads.
type GroupedRef struct {
	PatientID     string
	TreatmentType TreatmentType
	Leads         []string
}

func (r GroupedRef) CardID() string {
	return GroupKey(r.PatientID, r.TreatmentType)
}

func (r GroupedRef) LeadIDs() []string {
	out := make([]string, len(r.Leads))
	copy(out, r.Leads)
	return out
}

func (GroupedRef) cardRef() {}

// GroupKey monta a chave de agrupamento. Paciente ou tratamento ausentes viram
// o literal "null", então dois leads sem paciente caem no mesmo grupo.
func GroupKey(patientID string, treatment TreatmentType) string {
	p, t := patientID, string(treatment)
	if p == "" {
		p = nullKey
	}
	if t == "" {
		t = nullKey
	}
	return p + "-" + t
}

// ParseCardRef decompõe um id que não está no índice do quadro atual.
// Só o formato expandido é reconhecível pela string; o resto é tratado como
// id de lead e quem valida é o banco.
func ParseCardRef(cardID string) CardRef {
	if leadID, simID, ok := strings.Cut(cardID, ExpandedDelimiter); ok {
		return ExpandedRef{LeadID: leadID, SimulationID: simID}
	}
	return RawRef{LeadID: cardID}
}

// Card é a visão derivada exibida em uma coluna do quadro. Nunca é persistido.
// O campo ID sobrepõe o id do lead embutido na serialização.
type Card struct {
	Lead
	ID              string      `json:"id"`
	LeadID          string      `json:"lead_id"`
	SimulationID    *string     `json:"simulationId"`
	Simulation      *Simulation `json:"simulation,omitempty"`
	SimulationCount *int        `json:"simulationCount,omitempty"`
	Ref             CardRef     `json:"-"`
}

// NewRawCard devolve o card de um lead sem simulações.
func NewRawCard(lead Lead) Card {
	ref := RawRef{LeadID: lead.ID}
	return Card{
		Lead:   lead,
		ID:     ref.CardID(),
		LeadID: lead.ID,
		Ref:    ref,
	}
}
