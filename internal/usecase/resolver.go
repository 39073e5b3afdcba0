package usecase

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

// View escolhe como os leads de uma etapa viram cards.
type View string

const (
	// ViewGrouped dobra os leads de um mesmo (paciente, tratamento) em um card.
	ViewGrouped View = "grouped"
	// ViewExpanded abre um card por simulação do paciente.
	ViewExpanded View = "expanded"
)

func ParseView(s string) View {
	if View(s) == ViewExpanded {
		return ViewExpanded
	}
	return ViewGrouped
}

// Resolver transforma leads e simulações em cards do quadro.
// As buscas de simulação rodam com no máximo Concurrency chamadas simultâneas;
// com 1 elas saem em sequência, na ordem dos leads.
type Resolver struct {
	SimRepo     entity.SimulationRepositoryInterface
	Concurrency int
	Log         *logger.Logger
	Metrics     PipelineMetrics
}

func NewResolver(
	simRepo entity.SimulationRepositoryInterface,
	concurrency int,
	log *logger.Logger,
	metrics PipelineMetrics,
) *Resolver {
	if concurrency < 1 {
		concurrency = 1
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Resolver{
		SimRepo:     simRepo,
		Concurrency: concurrency,
		Log:         log.With("service", "Resolver"),
		Metrics:     metrics,
	}
}

// Resolve aplica o modo escolhido a todos os leads de uma etapa.
func (r *Resolver) Resolve(ctx context.Context, view View, leads []entity.Lead) []entity.Card {
	if view == ViewExpanded {
		return r.ExpandAll(ctx, leads)
	}
	return r.Group(ctx, leads)
}

// Expand abre um lead em um card por simulação do paciente. Se a busca falhar,
// devolve o card degradado (sem simulação) junto com o erro.
func (r *Resolver) Expand(ctx context.Context, lead entity.Lead) ([]entity.Card, error) {
	if !lead.HasPatient() {
		return r.expand(lead, lookupResult{}), nil
	}
	sims, err := r.SimRepo.ListByPatientID(ctx, lead.PatientID)
	res := lookupResult{sims: sims, err: err}
	return r.expand(lead, res), err
}

// ExpandAll expande uma lista de leads. Falha na busca de um paciente degrada só
// os leads daquele paciente.
func (r *Resolver) ExpandAll(ctx context.Context, leads []entity.Lead) []entity.Card {
	patientIDs := make([]string, 0, len(leads))
	for _, l := range leads {
		if l.HasPatient() {
			patientIDs = append(patientIDs, l.PatientID)
		}
	}
	found := r.lookup(ctx, patientIDs)

	cards := make([]entity.Card, 0, len(leads))
	for _, lead := range leads {
		cards = append(cards, r.expand(lead, found[lead.PatientID])...)
	}
	return cards
}

// expand monta os cards de um lead a partir do resultado da busca.
func (r *Resolver) expand(lead entity.Lead, res lookupResult) []entity.Card {
	if !lead.HasPatient() {
		return expandLead(lead, nil)
	}
	if res.err != nil {
		r.Log.Warn("falha ao buscar simulações, card degradado",
			"lead_id", lead.ID, "patient_id", lead.PatientID, "error", res.err)
		r.Metrics.IncDegradedLookup(string(ViewExpanded))
		return expandLead(lead, nil)
	}
	return expandLead(lead, res.sims)
}

// Group particiona os leads por (paciente, tratamento) e gera um card por
// partição, somando o preço final das simulações daquele tratamento.
// O lead representante é o primeiro da partição na ordem recebida.
func (r *Resolver) Group(ctx context.Context, leads []entity.Lead) []entity.Card {
	parts := partitionLeads(leads)

	patientIDs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.patientID != "" {
			patientIDs = append(patientIDs, p.patientID)
		}
	}
	found := r.lookup(ctx, patientIDs)

	cards := make([]entity.Card, 0, len(parts))
	for _, p := range parts {
		var sims []entity.Simulation
		if p.patientID != "" {
			res := found[p.patientID]
			if res.err != nil {
				r.Log.Warn("falha ao buscar simulações, partição degradada",
					"group", p.key, "patient_id", p.patientID, "error", res.err)
				r.Metrics.IncDegradedLookup(string(ViewGrouped))
			} else {
				sims = filterByTreatment(res.sims, p.treatment)
			}
		}
		cards = append(cards, groupCard(p, sims))
	}
	return cards
}

type lookupResult struct {
	sims []entity.Simulation
	err  error
}

// lookup busca as simulações de cada paciente uma única vez, respeitando o limite
// de concorrência. O resultado é indexado pelo paciente, então a ordem de término
// das buscas não afeta a montagem dos cards.
func (r *Resolver) lookup(ctx context.Context, patientIDs []string) map[string]lookupResult {
	uniq := make([]string, 0, len(patientIDs))
	seen := make(map[string]struct{}, len(patientIDs))
	for _, id := range patientIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	results := make([]lookupResult, len(uniq))
	var g errgroup.Group
	g.SetLimit(r.Concurrency)
	for i, patientID := range uniq {
		i, patientID := i, patientID
		g.Go(func() error {
			sims, err := r.SimRepo.ListByPatientID(ctx, patientID)
			results[i] = lookupResult{sims: sims, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]lookupResult, len(uniq))
	for i, id := range uniq {
		out[id] = results[i]
	}
	return out
}

func expandLead(lead entity.Lead, sims []entity.Simulation) []entity.Card {
	if !lead.HasPatient() || len(sims) == 0 {
		return []entity.Card{entity.NewRawCard(lead)}
	}

	cards := make([]entity.Card, 0, len(sims))
	for _, sim := range sims {
		ref := entity.ExpandedRef{LeadID: lead.ID, SimulationID: sim.ID}
		card := entity.Card{
			Lead:   lead,
			ID:     ref.CardID(),
			LeadID: lead.ID,
			Ref:    ref,
		}
		if sim.FinalPrice.Valid {
			card.OpportunityValue = sim.FinalPrice.Decimal
		}
		if sim.TreatmentType != "" {
			card.TreatmentType = sim.TreatmentType
		}
		simID := sim.ID
		s := sim
		card.SimulationID = &simID
		card.Simulation = &s
		cards = append(cards, card)
	}
	return cards
}

type partition struct {
	key       string
	patientID string
	treatment entity.TreatmentType
	leads     []entity.Lead
}

func partitionLeads(leads []entity.Lead) []*partition {
	parts := make([]*partition, 0, len(leads))
	byKey := make(map[string]*partition, len(leads))
	for _, lead := range leads {
		key := entity.GroupKey(lead.PatientID, lead.TreatmentType)
		p, ok := byKey[key]
		if !ok {
			p = &partition{key: key, patientID: lead.PatientID, treatment: lead.TreatmentType}
			byKey[key] = p
			parts = append(parts, p)
		}
		p.leads = append(p.leads, lead)
	}
	return parts
}

func filterByTreatment(sims []entity.Simulation, treatment entity.TreatmentType) []entity.Simulation {
	out := make([]entity.Simulation, 0, len(sims))
	for _, s := range sims {
		if s.TreatmentType == treatment {
			out = append(out, s)
		}
	}
	return out
}

func groupCard(p *partition, sims []entity.Simulation) entity.Card {
	base := p.leads[0]

	leadIDs := make([]string, len(p.leads))
	for i, l := range p.leads {
		leadIDs[i] = l.ID
	}
	ref := entity.GroupedRef{PatientID: p.patientID, TreatmentType: p.treatment, Leads: leadIDs}

	total := decimal.Zero
	for _, s := range sims {
		total = total.Add(s.Price())
	}
	count := len(sims)

	card := entity.Card{
		Lead:            base,
		ID:              ref.CardID(),
		LeadID:          base.ID,
		SimulationCount: &count,
		Ref:             ref,
	}
	card.OpportunityValue = total
	if count == 0 && total.IsZero() {
		card.OpportunityValue = base.OpportunityValue
	}
	if count > 0 {
		simID := sims[0].ID
		first := sims[0]
		card.SimulationID = &simID
		card.Simulation = &first
	}
	return card
}
