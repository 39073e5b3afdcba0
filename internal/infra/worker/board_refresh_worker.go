package worker

import (
	"context"
	"time"

	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

type Reloader interface {
	Reload(ctx context.Context) error
}

// BoardRefreshWorker recarrega o quadro em intervalo fixo. Cobre eventos
// perdidos no broker e alterações feitas direto no banco.
type BoardRefreshWorker struct {
	board        Reloader
	tickInterval time.Duration
	log          *logger.Logger
}

func NewBoardRefreshWorker(board Reloader, interval time.Duration, log *logger.Logger) *BoardRefreshWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &BoardRefreshWorker{
		board:        board,
		tickInterval: interval,
		log:          log.With("service", "BoardRefreshWorker"),
	}
}

// Start faz o primeiro reload na hora e depois a cada tick. Intervalo zero
// desliga o refresh periódico, mas o reload inicial acontece mesmo assim.
func (w *BoardRefreshWorker) Start(ctx context.Context) {
	w.refresh(ctx)

	if w.tickInterval <= 0 {
		w.log.Info("refresh periódico desligado")
		return
	}

	w.log.Info("refresh periódico iniciado", "interval", w.tickInterval.String())

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("refresh periódico encerrado")
			return
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *BoardRefreshWorker) refresh(ctx context.Context) {
	// o quadro já notifica e registra a falha
	if err := w.board.Reload(ctx); err != nil {
		w.log.Warn("refresh do quadro falhou", "error", err)
	}
}
