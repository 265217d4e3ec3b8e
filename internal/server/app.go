// Package server wires configuration, storage and services together and
// runs the HTTP API, the gRPC health endpoint and the enrollment listener
// until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/api"
	"github.com/dmitrijs2005/rechub/internal/server/config"
	"github.com/dmitrijs2005/rechub/internal/server/listener"
	"github.com/dmitrijs2005/rechub/internal/server/mailer"
	"github.com/dmitrijs2005/rechub/internal/server/middleware"
	"github.com/dmitrijs2005/rechub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/rechub/internal/server/roles"
	"github.com/dmitrijs2005/rechub/internal/server/services"
	"github.com/gin-gonic/gin"

	gs "github.com/dmitrijs2005/rechub/internal/server/grpc"
)

type App struct {
	config   *config.Config
	logger   logging.Logger
	db       *sql.DB
	router   http.Handler
	listener *listener.Listener
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	m := repomanager.NewPostgresRepositoryManager()
	if err := m.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	resolver := roles.NewResolver(c.AdminEmails, c.CoachEmails)
	aggregator := services.NewAggregator(db, m, c.AggregatorMaxRetries, logger.With("module", "aggregator"))

	// A nil interface, not a nil *SMTPSender, marks mail as unconfigured.
	var sender mailer.Sender
	if c.MailConfigured() {
		sender = mailer.NewSMTPSender(mailer.Options{
			Host:        c.SMTPHost,
			Port:        c.SMTPPort,
			ImplicitTLS: c.SMTPImplicitTLS(),
			Username:    c.SMTPUser,
			Password:    c.SMTPPass,
			From:        c.SMTPSender(),
		})
	} else {
		logger.Warn(ctx, "SMTP credentials missing, email dispatch disabled")
	}
	if !c.StorageConfigured() {
		logger.Warn(ctx, "object storage settings missing, attachment uploads disabled")
	}

	svc := api.Services{
		Users:       services.NewUserService(db, m, resolver, c, logger.With("module", "users")),
		Programs:    services.NewProgramService(db, m, resolver, aggregator, logger.With("module", "programs")),
		Enrollments: services.NewEnrollmentService(db, m),
		Stats:       services.NewStatsService(db, m),
		Dispatcher:  services.NewDispatcher(db, m, sender, c.AllowedAttachmentHosts(), logger.With("module", "dispatcher")),
		Attachments: services.NewAttachmentService(c),
	}

	if !c.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(svc, middleware.NewAuthenticator(c.SecretKey), c.CORSOrigins, logger.With("module", "http"))

	uncounted := func(ctx context.Context, limit int) ([]string, error) {
		return m.Enrollments(db).ListUncounted(ctx, limit)
	}
	l := listener.NewListener(c.DatabaseDSN, aggregator, uncounted, logger.With("module", "listener"))

	return &App{config: c, logger: logger, db: db, router: router, listener: l}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	srv := &http.Server{
		Addr:              app.config.EndpointAddrHTTP,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		app.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.logger.Error(ctx, "HTTP shutdown error", "error", err)
		}
	}()

	app.logger.Info(ctx, "Starting HTTP server", "address", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.db.PingContext)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startListener(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.listener.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	for _, start := range []func(context.Context, context.CancelFunc){
		app.startHTTPServer,
		app.startGRPCServer,
		app.startListener,
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start(ctx, cancelFunc)
		}()
	}

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(context.Background(), "db close error", "error", err)
	}
	app.logger.Info(context.Background(), "App stopped")
}
