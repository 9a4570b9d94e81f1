package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/gatebot/internal/alert"
	"github.com/iamwavecut/gatebot/internal/bot"
	"github.com/iamwavecut/gatebot/internal/broadcast"
	"github.com/iamwavecut/gatebot/internal/codes"
	"github.com/iamwavecut/gatebot/internal/config"
	"github.com/iamwavecut/gatebot/internal/db/sqlite"
	"github.com/iamwavecut/gatebot/internal/gate"
	"github.com/iamwavecut/gatebot/internal/handlers/access"
	"github.com/iamwavecut/gatebot/internal/handlers/admin"
	"github.com/iamwavecut/gatebot/internal/handlers/ledger"
	"github.com/iamwavecut/gatebot/internal/handlers/moderation"
	"github.com/iamwavecut/gatebot/internal/handlers/registration"
	"github.com/iamwavecut/gatebot/internal/handlers/submissions"
	"github.com/iamwavecut/gatebot/internal/infra"
	"github.com/iamwavecut/gatebot/internal/lifecycle"
	"github.com/iamwavecut/gatebot/internal/observability"
	"github.com/iamwavecut/gatebot/internal/settings"
)

const shutdownTimeout = 15 * time.Second

func main() {
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.WithField("error", err.Error()).Error("gatebot stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	shutdownTracing := observability.InitTracing()

	dbClient, err := sqlite.NewSQLiteClient(ctx, cfg.DotPath, cfg.DBName)
	if err != nil {
		return errors.WithMessage(err, "cant open database")
	}
	defer func() { _ = dbClient.Close() }()

	store, err := settings.NewStore(ctx, dbClient, settings.Defaults(cfg))
	if err != nil {
		return errors.WithMessage(err, "cant load settings")
	}

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return errors.WithMessage(err, "cant initialize bot api")
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}

	alerts, err := alert.New(botAPI, cfg.AdminIDs, cfg.Observability.SentryDSN)
	if err != nil {
		return err
	}
	defer alerts.Flush(2 * time.Second)

	generator, err := codes.NewGenerator(cfg.Content.CodePrefix, cfg.Content.CodeLength)
	if err != nil {
		return err
	}

	service := bot.NewService(botAPI, store, cfg, botAPI.Self.UserName)
	gatekeeper := gate.New(botAPI, store)
	store.OnChange(func(settings.Snapshot) { gatekeeper.Forget() })

	registrationHandler := registration.NewRegistration(
		service,
		registration.NewSessions(dbClient),
		registration.NewFinalizer(botAPI, dbClient, store, generator, service.BotUsername(), cfg.DefaultLanguage),
	)
	adminHandler := admin.NewAdmin(service, dbClient, broadcast.New(cfg.Broadcast.Rate, cfg.Broadcast.Burst))

	processor := bot.NewUpdateProcessor(cfg.EnabledHandlers)
	processor.RegisterUpdateHandler("ledger", ledger.NewLedger(service, dbClient))
	processor.RegisterUpdateHandler("moderation", moderation.NewModeration(service, store))
	processor.RegisterUpdateHandler("admin", adminHandler)
	processor.RegisterUpdateHandler("registration", registrationHandler)
	processor.RegisterUpdateHandler("submissions", submissions.NewSubmissions(service, dbClient, registrationHandler))
	processor.RegisterUpdateHandler("access", access.NewHandler(
		service,
		access.NewDispatcher(botAPI, gatekeeper, dbClient, store, alerts),
	))

	runtime := lifecycle.NewRuntime()
	// Registered first so spans are flushed after everything else stopped.
	runtime.Register("tracing", lifecycle.Hook{OnStop: shutdownTracing})
	if cfg.Observability.MetricsAddr != "" {
		runtime.Register("metrics", observability.NewMetricsServer(cfg.Observability.MetricsAddr))
	}
	runtime.Register("admin", adminHandler)
	runtime.Register("poller", bot.NewPoller(botAPI, reportingProcessor{processor, alerts}, cfg.Workers))

	if err := runtime.Start(ctx); err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"bot":      service.BotUsername(),
		"handlers": cfg.EnabledHandlers,
	}).Info("gatebot started")

	select {
	case <-ctx.Done():
		log.Info("shutdown requested")
	case <-infra.MonitorExecutable(ctx):
		log.Warn("executable file was modified, exiting")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return runtime.Stop(stopCtx)
}

// reportingProcessor forwards update failures to the operators.
type reportingProcessor struct {
	next   bot.Processor
	alerts *alert.Reporter
}

func (p reportingProcessor) Process(ctx context.Context, u *api.Update) error {
	err := p.next.Process(ctx, u)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.alerts.Report(ctx, "process update", err, log.Fields{"update_id": u.UpdateID})
	}
	return err
}
