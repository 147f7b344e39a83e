// main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariebrainware/medibot/article"
	"github.com/ariebrainware/medibot/config"
	"github.com/ariebrainware/medibot/consultation"
	"github.com/ariebrainware/medibot/model"
	"github.com/ariebrainware/medibot/notify"
	"github.com/ariebrainware/medibot/scheduler"
	"github.com/ariebrainware/medibot/util"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

const (
	defaultPort     = 8080
	shutdownTimeout = 15 * time.Second
)

// app holds the process-wide connections shared by the commands.
type app struct {
	cfg *config.Config
	log zerolog.Logger

	db            *gorm.DB
	rdb           *redis.Client
	mongo         *mongo.Client
	consultations consultation.Store
	articles      *article.Cache
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "medibot",
		Short: "Health assistant API and medication reminder worker",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var withScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), withScheduler)
		},
	}
	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the reminder scheduler in this process")
	return cmd
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the medication reminder scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd.Context())
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and MongoDB indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

// bootstrap loads the configuration and initialises logging and hashing.
func bootstrap() (*config.Config, zerolog.Logger) {
	cfg := config.LoadConfig()
	gin.SetMode(cfg.GinMode)
	logger := util.InitLogger(cfg.LogLevel, cfg.GinMode != gin.ReleaseMode)
	if cfg.PasswordSecret != "" {
		util.SetPasswordSecret(cfg.PasswordSecret)
	} else {
		logger.Warn().Msg("PASSWORD_SECRET is empty; password digests are unkeyed")
	}
	return cfg, logger
}

// openApp connects every backing store. MySQL is required; Redis and MongoDB
// are optional and their features degrade when unavailable.
func openApp(ctx context.Context) (*app, error) {
	cfg, logger := bootstrap()
	a := &app{cfg: cfg, log: logger}

	db, err := config.ConnectMySQL()
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	a.db = db

	rdb, err := config.ConnectRedis()
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable; using in-process article cache and no login rate limit")
	}
	a.rdb = rdb
	a.articles = article.NewCache(rdb, cfg.HealthNewsCacheTTL, logger)

	if !cfg.IsTest() {
		client, mdb, err := config.ConnectMongo(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("mongodb unavailable; consultation endpoints disabled")
		} else {
			a.mongo = client
			a.consultations = consultation.NewMongoStore(mdb)
		}
	}
	return a, nil
}

func (a *app) close() {
	if a.mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.mongo.Disconnect(ctx); err != nil {
			a.log.Warn().Err(err).Msg("mongodb disconnect failed")
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func (a *app) newScheduler() (*scheduler.Scheduler, error) {
	sender := notify.NewSMTPSender(a.cfg.Mail)
	dispatcher := notify.NewDispatcher(sender, a.cfg.Mail.RatePerSec, a.log)
	return scheduler.New(a.db, dispatcher, a.log, scheduler.Options{
		Spec:     a.cfg.ReminderSchedule,
		Location: a.cfg.Timezone,
	})
}

func waitForSignal(ctx context.Context) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)
	select {
	case <-quit:
	case <-ctx.Done():
	}
}

func runServer(ctx context.Context, withScheduler bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	var sched *scheduler.Scheduler
	if withScheduler {
		if sched, err = a.newScheduler(); err != nil {
			return err
		}
		if err := sched.Start(); err != nil {
			return err
		}
	}

	port := int(a.cfg.AppPort)
	if port == 0 {
		port = defaultPort
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           setupRouter(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", srv.Addr).Str("app", a.cfg.AppName).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	default:
	}

	waitForSignal(ctx)
	a.log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("server shutdown failed")
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("scheduler stop failed")
		}
	}
	a.log.Info().Msg("server stopped")
	return nil
}

func runWorker(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := a.newScheduler()
	if err != nil {
		return err
	}
	if err := sched.Start(); err != nil {
		return err
	}
	a.log.Info().Str("schedule", a.cfg.ReminderSchedule).Str("timezone", a.cfg.Timezone.String()).Msg("reminder worker started")

	waitForSignal(ctx)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := sched.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop scheduler: %w", err)
	}
	ticks, skipped := sched.Stats()
	a.log.Info().Int64("ticks", ticks).Int64("skipped", skipped).Msg("reminder worker stopped")
	return nil
}

// migrateModels lists the relational tables owned by the service.
var migrateModels = []interface{}{
	&model.MedicationReminder{},
	&model.UserInfo{},
	&model.HealthArticle{},
}

func runMigrate(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.db.AutoMigrate(migrateModels...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	a.log.Info().Int("tables", len(migrateModels)).Msg("relational schema migrated")

	if store, ok := a.consultations.(*consultation.MongoStore); ok {
		if err := store.EnsureIndexes(ctx); err != nil {
			return err
		}
		a.log.Info().Str("collection", consultation.CollectionName).Msg("mongodb indexes ensured")
	}
	return nil
}
