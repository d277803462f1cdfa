package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/config"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/consumer"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/courtclient"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/events"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/handlers"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/outbox"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/pg"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/repo"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/internal/service"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/auth"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/clients"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/logger"
	"github.com/SCRMS-FPT/SCRMS-BE-sub001/pkg/mq"
)

type ApplicationI interface {
	Start(ctx context.Context) error
	Wait(ctx context.Context, cancel context.CancelFunc) error
}

type Application struct {
	kind       config.Kind
	cfg        *config.Config
	api        *handlers.Handlers
	srv        *service.Services
	repo       *repo.Repositories
	dispatcher *outbox.Dispatcher
	consumer   *consumer.Consumer

	pool    *pgxpool.Pool
	closers []io.Closer
	errCh   chan error
	wg      sync.WaitGroup
}

func New(kind config.Kind) *Application {
	return &Application{
		kind:  kind,
		errCh: make(chan error),
	}
}

func (a *Application) Start(ctx context.Context) error {
	cfg := config.New()

	err := logger.InitLogger(cfg)
	if err != nil {
		return fmt.Errorf("can't init logger: %w", err)
	}
	log := zap.L().With(zap.String("service", string(a.kind)))

	pool, err := getPgxpool(ctx, cfg)
	if err != nil {
		log.Error("build pgx pool failed: ", zap.Error(err))
		return fmt.Errorf("can't build pgx pool: %w", err)
	}
	a.pool = pool
	if err := pg.RunMigrations(pool, string(a.kind)); err != nil {
		log.Error("migrations failed: ", zap.Error(err))
		return fmt.Errorf("can't run migrations: %w", err)
	}
	txManager := pg.NewTXManager(pool)

	conn := pg.New(pool)
	a.cfg = cfg
	a.repo = repo.New(conn, txManager)
	registry := events.Default()

	var publisher *outbox.Publisher
	if a.kind != config.KindNotification {
		bus, err := mq.NewPublisher(cfg.RabbitURL, cfg.Exchange)
		if err != nil {
			return fmt.Errorf("can't connect publisher: %w", err)
		}
		a.closers = append(a.closers, bus)
		publisher = outbox.NewPublisher(a.repo.Outbox, bus)
		a.dispatcher = outbox.NewDispatcher(cfg, a.repo.Outbox, bus, registry)
	}

	owners := courtclient.New(cfg, clients.NewHTTPClient())
	a.srv = service.New(a.kind, cfg, a.repo, txManager, publisher, owners)
	a.api = handlers.New(a.srv, auth.NewJWTService(cfg.JWTSecret))

	if err := a.initConsumer(registry); err != nil {
		return fmt.Errorf("can't start consumer: %w", err)
	}

	if err = a.startHTTPServer(ctx); err != nil {
		return fmt.Errorf("can't start http server: %w", err)
	}
	a.startDispatcher(ctx)
	a.startConsumer(ctx)

	log.Info("all systems started successfully")
	return nil
}

func getPgxpool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	cfgpool, err := pgxpool.ParseConfig(cfg.Database)
	if err != nil {
		return nil, err
	}
	dbpool, err := pgxpool.NewWithConfig(ctx, cfgpool)
	if err != nil {
		return nil, err
	}
	if err = dbpool.Ping(ctx); err != nil {
		return nil, err
	}
	return dbpool, nil
}

func (a *Application) initConsumer(registry *events.Registry) error {
	subs := a.srv.Subscriptions()
	if len(subs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(subs))
	for k := range subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	queue := a.cfg.Queue
	if queue == "" {
		queue = "scrms." + string(a.kind)
	}
	source, err := mq.NewConsumer(a.cfg.RabbitURL, a.cfg.Exchange, queue, keys, 2*a.cfg.ConsumerWorkers)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, source)

	a.consumer = consumer.New(source, registry, a.cfg.ConsumerWorkers)
	for _, k := range keys {
		a.consumer.Handle(k, subs[k])
	}
	return nil
}

func (a *Application) startHTTPServer(ctx context.Context) error {
	router := chi.NewRouter()
	a.api.InitRoutes(router)
	server := http.Server{
		Addr:              a.cfg.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		<-ctx.Done()

		sCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(sCtx)
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		zap.L().Info("starting http server on port", zap.String("port", a.cfg.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- fmt.Errorf("http server exited with error: %w", err)
		}
	}()

	return nil
}

func (a *Application) startDispatcher(ctx context.Context) {
	if a.dispatcher == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.dispatcher.Run(ctx)
	}()
}

func (a *Application) startConsumer(ctx context.Context) {
	if a.consumer == nil {
		return
	}
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.consumer.Run(ctx); err != nil {
			a.errCh <- fmt.Errorf("consumer exited with error: %w", err)
		}
	}()
}

func (a *Application) Wait(ctx context.Context, cancel context.CancelFunc) error {
	var appErr error

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()

		for err := range a.errCh {
			cancel()
			zap.L().Error(err.Error())
			appErr = err
		}
	}()

	<-ctx.Done()
	a.wg.Wait()
	close(a.errCh)
	wg.Wait()

	a.close()
	return appErr
}

func (a *Application) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
