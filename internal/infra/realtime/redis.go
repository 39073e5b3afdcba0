package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
)

// RedisBus publica e recebe eventos do funil por pub/sub. Sem ack: uma
// mensagem perdida é coberta pelo refresh periódico.
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisBus(rdb *goredis.Client, channel string, log *logger.Logger) (*RedisBus, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if channel == "" {
		channel = "pipeline-events"
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisBus{
		log:     log.With("service", "RedisPipelineBus"),
		rdb:     rdb,
		channel: channel,
	}, nil
}

func (b *RedisBus) PublishPipelineEvent(ctx context.Context, event entity.PipelineEvent) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

// StartForwarder assina o canal e entrega cada payload ao bridge até o ctx acabar.
func (b *RedisBus) StartForwarder(ctx context.Context, bridge *Bridge) error {
	if bridge == nil {
		return errors.New("bridge required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)

	// garante que a assinatura começou de fato
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				if _, err := bridge.Handle(ctx, []byte(m.Payload)); err != nil {
					if errors.Is(err, ErrMalformedEvent) {
						b.log.Warn("payload inválido no redis", "error", err)
					} else {
						b.log.Error("falha ao recarregar após evento", "error", err)
					}
				}
			}
		}
	}()

	b.log.Info("forwarder redis ativo", "channel", b.channel)
	return nil
}

func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
