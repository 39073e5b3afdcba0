package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

// BoardSnapshot é uma cópia somente leitura do quadro.
type BoardSnapshot struct {
	View    View
	Loading bool
	Stages  map[entity.Stage][]entity.Card
}

// PipelineBoard monta o quadro kanban a partir do banco.
//
// Cada Reload recebe um número de sequência na entrada e só grava o resultado se
// nenhum Reload iniciado depois já tiver gravado. O quadro é sempre trocado
// inteiro, nunca remendado.
type PipelineBoard struct {
	LeadRepo entity.LeadRepositoryInterface
	Resolver *Resolver
	View     View
	Notifier Notifier
	Metrics  PipelineMetrics
	Log      *logger.Logger

	seq      atomic.Uint64
	inFlight atomic.Int32

	mu        sync.RWMutex
	committed uint64
	stages    map[entity.Stage][]entity.Card
	index     map[entity.Stage]map[string]entity.CardRef
}

func NewPipelineBoard(
	leadRepo entity.LeadRepositoryInterface,
	resolver *Resolver,
	view View,
	notifier Notifier,
	metrics PipelineMetrics,
	log *logger.Logger,
) *PipelineBoard {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &PipelineBoard{
		LeadRepo: leadRepo,
		Resolver: resolver,
		View:     view,
		Notifier: notifier,
		Metrics:  metrics,
		Log:      log.With("service", "PipelineBoard"),
		stages:   emptyStages(),
		index:    map[entity.Stage]map[string]entity.CardRef{},
	}
}

// Reload recalcula o quadro inteiro. Em caso de falha o quadro anterior continua
// visível, o usuário recebe uma notificação e o erro é devolvido.
func (b *PipelineBoard) Reload(ctx context.Context) error {
	seq := b.seq.Add(1)
	b.inFlight.Add(1)
	defer b.inFlight.Add(-1)

	start := time.Now()

	grouped, err := b.LeadRepo.ListGroupedByStage(ctx)
	if err != nil {
		return b.fail(ctx, start, err)
	}
	for st := range grouped {
		if _, err := entity.ParseStage(string(st)); err != nil {
			return b.fail(ctx, start, fmt.Errorf("%w: %v", entity.ErrMalformedLead, err))
		}
	}

	stages := make(map[entity.Stage][]entity.Card, len(entity.Stages))
	index := make(map[entity.Stage]map[string]entity.CardRef, len(entity.Stages))
	for _, st := range entity.Stages {
		cards := b.Resolver.Resolve(ctx, b.View, grouped[st])
		stages[st] = cards
		index[st] = make(map[string]entity.CardRef, len(cards))
		for _, c := range cards {
			index[st][c.ID] = c.Ref
		}
	}

	// simulações buscadas com contexto cancelado viriam todas degradadas
	if err := ctx.Err(); err != nil {
		return b.fail(ctx, start, err)
	}

	if !b.commit(seq, stages, index) {
		b.Metrics.IncStaleReload()
		b.Log.Warn("resultado de reload descartado, já existe um mais novo", "seq", seq)
		return nil
	}

	b.Metrics.ObserveReload("success", time.Since(start))
	b.Log.Debug("quadro recarregado", "seq", seq, "duration", time.Since(start))
	return nil
}

func (b *PipelineBoard) commit(seq uint64, stages map[entity.Stage][]entity.Card, index map[entity.Stage]map[string]entity.CardRef) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if seq <= b.committed {
		return false
	}
	b.committed = seq
	b.stages = stages
	b.index = index
	return true
}

func (b *PipelineBoard) fail(ctx context.Context, start time.Time, err error) error {
	b.Metrics.ObserveReload("error", time.Since(start))
	b.Log.Error("falha ao recarregar o quadro", "error", err)
	notify(ctx, b.Notifier, LevelError, "Erro ao carregar o funil",
		"Não foi possível atualizar o quadro. Os dados exibidos podem estar desatualizados.")
	return &TechnicalError{
		Code:    "BOARD_RELOAD_FAILED",
		Message: "falha ao recarregar o quadro: " + err.Error(),
		Err:     err,
	}
}

// Snapshot copia o quadro gravado mais recente.
func (b *PipelineBoard) Snapshot() BoardSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stages := make(map[entity.Stage][]entity.Card, len(b.stages))
	for st, cards := range b.stages {
		cp := make([]entity.Card, len(cards))
		copy(cp, cards)
		stages[st] = cp
	}
	return BoardSnapshot{View: b.View, Loading: b.IsLoading(), Stages: stages}
}

func (b *PipelineBoard) IsLoading() bool {
	return b.inFlight.Load() > 0
}

// Resolve traduz o id de um card para os leads reais do quadro gravado.
// No modo agrupado o mesmo (paciente, tratamento) pode aparecer em mais de uma
// coluna; sem a etapa, esse id devolve ErrAmbiguousCard. Ids que não estão no
// quadro caem na decomposição por string.
func (b *PipelineBoard) Resolve(cardID string, stage entity.Stage) (entity.CardRef, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if stage != "" {
		if ref, ok := b.index[stage][cardID]; ok {
			return ref, nil
		}
		return entity.ParseCardRef(cardID), nil
	}

	var found []entity.CardRef
	for _, st := range entity.Stages {
		if ref, ok := b.index[st][cardID]; ok {
			found = append(found, ref)
		}
	}
	switch len(found) {
	case 0:
		return entity.ParseCardRef(cardID), nil
	case 1:
		return found[0], nil
	}
	return nil, fmt.Errorf("%w: %s", entity.ErrAmbiguousCard, cardID)
}

func emptyStages() map[entity.Stage][]entity.Card {
	out := make(map[entity.Stage][]entity.Card, len(entity.Stages))
	for _, st := range entity.Stages {
		out[st] = []entity.Card{}
	}
	return out
}
