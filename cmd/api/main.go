package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rabbitmq/amqp091-go"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-pipeline/internal/config"
	"github.com/xavierca1/ligue-pipeline/internal/infra/database"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-pipeline/internal/infra/logger"
	"github.com/xavierca1/ligue-pipeline/internal/infra/mail"
	"github.com/xavierca1/ligue-pipeline/internal/infra/notification"
	"github.com/xavierca1/ligue-pipeline/internal/infra/queue"
	"github.com/xavierca1/ligue-pipeline/internal/infra/realtime"
	"github.com/xavierca1/ligue-pipeline/internal/infra/worker"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// sem logger ainda
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With("instance_id", cfg.InstanceID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDBConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("falha ao conectar no banco", "error", err)
	}
	defer db.Close()

	// 1. Repositórios
	leadRepo := database.NewLeadRepository(db)
	simRepo := database.NewSimulationRepository(db)

	// 2. Métricas e notificações
	metrics := middleware.NewPipelineMetrics(prometheus.DefaultRegisterer)
	feed := notification.NewFeed(notification.DefaultFeedSize)
	notifier := notification.Multi{feed}
	if cfg.MailConfigured() {
		notifier = append(notifier, mail.NewAlertNotifier(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.AlertEmail, log))
	}

	// 3. Quadro
	resolver := usecase.NewResolver(simRepo, cfg.SimulationFetchConcurrency, log, metrics)
	board := usecase.NewPipelineBoard(leadRepo, resolver, usecase.ParseView(cfg.BoardView), notifier, metrics, log)
	bridge := realtime.NewBridge(board, cfg.InstanceID, log)

	g, gctx := errgroup.WithContext(ctx)

	// 4. Transporte dos eventos
	var (
		publisher usecase.EventPublisher
		rabbitMQ  *amqp091.Connection
		rdb       *goredis.Client
	)
	switch cfg.RealtimeTransport {
	case config.TransportRabbitMQ:
		rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL, cfg.InstanceID)
		if err != nil {
			log.Fatal("falha ao iniciar RabbitMQ", "error", err)
		}
		defer rmq.Close()
		rabbitMQ = rmq.Conn
		publisher = queue.NewProducer(rmq.Ch)

		w := queue.NewWorker(rmq.Ch, bridge, log)
		g.Go(func() error { return w.Start(gctx, rmq.QueueName) })

	case config.TransportRedis:
		rdb, err = realtime.NewRedisClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Fatal("falha ao conectar no Redis", "error", err)
		}
		bus, err := realtime.NewRedisBus(rdb, cfg.RedisChannel, log)
		if err != nil {
			log.Fatal("falha ao iniciar bus Redis", "error", err)
		}
		defer bus.Close()
		publisher = bus
		if err := bus.StartForwarder(gctx, bridge); err != nil {
			log.Fatal("falha ao assinar canal Redis", "error", err)
		}

	default:
		log.Warn("transporte de eventos desligado, só o refresh periódico atualiza o quadro")
	}

	// 5. UseCases
	transitionUC := usecase.NewStageTransitionUseCase(leadRepo, board, notifier, publisher, metrics, log, cfg.InstanceID)
	createLeadUC := usecase.NewCreateLeadUseCase(leadRepo, board, publisher, log, cfg.InstanceID)
	listLeadsUC := usecase.NewListLeadsUseCase(leadRepo)

	// 6. Handlers
	limiter := handlers.NewRateLimiter(10, time.Minute) // 10 req/min por IP
	boardHandler := handlers.NewBoardHandler(board, transitionUC)
	leadHandler := handlers.NewLeadHandler(createLeadUC, listLeadsUC, limiter)
	notificationHandler := handlers.NewNotificationHandler(feed)
	healthHandler := handlers.NewHealthHandler(db, rabbitMQ, rdb, board)

	// 7. Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}))

	r.Get("/board", boardHandler.GetBoard)
	r.Post("/board/reload", boardHandler.Reload)
	r.Patch("/cards/{cardId}/stage", boardHandler.MoveCard)
	r.Delete("/cards/{cardId}", boardHandler.DeleteCard)

	r.Post("/leads", leadHandler.CreateLead)
	r.Get("/leads", leadHandler.ListLeads)

	r.Get("/notifications", notificationHandler.List)
	r.Get("/health", healthHandler.Handle)
	r.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// 8. Workers
	refresher := worker.NewBoardRefreshWorker(board, cfg.RefreshInterval, log)
	g.Go(func() error {
		refresher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		limiter.Cleanup(gctx, 10*time.Minute)
		return nil
	})

	g.Go(func() error {
		log.Info("servidor do funil rodando", "port", cfg.Port, "view", cfg.BoardView, "transport", cfg.RealtimeTransport)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("servidor encerrado com erro", "error", err)
		return
	}
	log.Info("servidor encerrado")
}
