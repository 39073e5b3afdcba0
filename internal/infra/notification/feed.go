package notification

import (
	"context"
	"sync"

	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

const DefaultFeedSize = 100

// Feed guarda as últimas notificações em memória para o GET /notifications.
type Feed struct {
	mu    sync.Mutex
	items []usecase.Notification
	next  int
	full  bool
}

func NewFeed(size int) *Feed {
	if size <= 0 {
		size = DefaultFeedSize
	}
	return &Feed{items: make([]usecase.Notification, size)}
}

func (f *Feed) Notify(_ context.Context, n usecase.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[f.next] = n
	f.next = (f.next + 1) % len(f.items)
	if f.next == 0 {
		f.full = true
	}
}

// Recent devolve da mais recente para a mais antiga.
func (f *Feed) Recent() []usecase.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := f.next
	if f.full {
		count = len(f.items)
	}

	out := make([]usecase.Notification, 0, count)
	for i := 1; i <= count; i++ {
		idx := (f.next - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}

// Multi repassa a notificação para vários destinos, na ordem.
type Multi []usecase.Notifier

func (m Multi) Notify(ctx context.Context, n usecase.Notification) {
	for _, t := range m {
		if t != nil {
			t.Notify(ctx, n)
		}
	}
}
