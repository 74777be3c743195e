package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/iliyamo/stall-rental/internal/config"
	"github.com/iliyamo/stall-rental/internal/database"
	"github.com/iliyamo/stall-rental/internal/handler"
	"github.com/iliyamo/stall-rental/internal/logger"
	"github.com/iliyamo/stall-rental/internal/metrics"
	"github.com/iliyamo/stall-rental/internal/queue"
	"github.com/iliyamo/stall-rental/internal/repository"
	"github.com/iliyamo/stall-rental/internal/router"
	"github.com/iliyamo/stall-rental/internal/service"
)

var (
	rootCmd = &cobra.Command{
		Use:   "server",
		Short: "Stall rental ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve()
		},
	}

	consumeCmd = &cobra.Command{
		Use:   "consume",
		Short: "Drain ledger events into the audit log",
		RunE: func(cmd *cobra.Command, args []string) error {
			return consume()
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return migrate()
		},
	}

	useraddCmd = &cobra.Command{
		Use:   "useradd",
		Short: "Create a staff account",
		RunE: func(cmd *cobra.Command, args []string) error {
			return useradd()
		},
	}

	newUser struct {
		fullname string
		username string
		password string
		role     string
	}
)

func init() {
	f := useraddCmd.Flags()
	f.StringVar(&newUser.fullname, "fullname", "", "full name")
	f.StringVar(&newUser.username, "username", "", "login name")
	f.StringVar(&newUser.password, "password", "", "initial password")
	f.StringVar(&newUser.role, "role", "Admin", "Admin or Employee")
	_ = useraddCmd.MarkFlagRequired("username")
	_ = useraddCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, consumeCmd, migrateCmd, useraddCmd)
}

// setup loads configuration and builds the process logger.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, lg, nil
}

func serve() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		lg.Error("database unreachable", zap.Error(err))
		return err
	}
	defer db.Close()

	rdb := config.NewRedisClient(cfg.Redis)
	if rdb == nil {
		lg.Warn("redis unavailable, cache and rate limiting disabled", zap.String("addr", cfg.Redis.Address()))
	} else {
		defer rdb.Close()
	}
	m := metrics.New()

	vendors := repository.NewVendorRepo(db)
	sections := repository.NewSectionRepo(db)
	stalls := repository.NewStallRepo(db)
	rentals := repository.NewRentalRepo(db)
	payments := repository.NewPaymentRepo(db)
	receipts := repository.NewReceiptRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	tx := database.NewTxRunner(db)

	deps := service.LedgerDeps{
		Rentals:     rentals,
		Payments:    payments,
		Vendors:     vendors,
		Stalls:      stalls,
		Users:       users,
		ReceiptBook: receipts,
		Receipts:    service.NewReceiptGenerator(receipts, m),
		Tx:          tx,
		Observer:    m,
		Log:         lg.Named("ledger"),
	}
	if cfg.AMQPURL != "" {
		deps.Events = queue.NewPublisher(cfg.AMQPURL, cfg.EventQueue, lg.Named("publisher"))
	} else {
		lg.Info("RABBITMQ_URL not set, ledger events are not published")
	}
	ledger := service.NewRentalLedger(deps)
	numbering := service.NewStallNumbering(stalls, sections, tx)
	catalog := service.NewCatalog(vendors, sections, stalls, rentals, numbering, tx, lg.Named("catalog"))
	accounts := service.NewUsers(users, tx, cfg.BcryptCost)

	e := router.New(router.Deps{
		Config:  cfg,
		Log:     lg,
		Redis:   rdb,
		Metrics: m,
		DB:      db,
		Auth:    handler.NewAuthHandler(cfg, accounts, tokens, lg),
		Users:   handler.NewUserHandler(accounts, lg, cfg.RequestTimeout),
		Catalog: handler.NewCatalogHandler(catalog, lg, cfg.RequestTimeout),
		Ledger:  handler.NewLedgerHandler(ledger, lg, cfg.RequestTimeout),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	lg.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}

func consume() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()

	if cfg.AMQPURL == "" {
		return errors.New("RABBITMQ_URL is required for consume")
	}
	audit, err := logger.NewAudit(cfg.Log.AuditPath, cfg.Log)
	if err != nil {
		return fmt.Errorf("audit log: %w", err)
	}
	defer audit.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lg.Info("consuming ledger events", zap.String("queue", cfg.EventQueue))
	if err := queue.NewConsumer(cfg.AMQPURL, cfg.EventQueue, lg.Named("consumer"), audit).Run(ctx); err != nil &&
		!errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func migrate() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		return err
	}
	lg.Info("schema applied", zap.Int("statements", len(database.Statements())))
	return nil
}

func useradd() error {
	cfg, lg, err := setup()
	if err != nil {
		return err
	}
	defer lg.Sync()

	db, err := database.Open(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	fullname := newUser.fullname
	if fullname == "" {
		fullname = newUser.username
	}
	u, err := service.NewUsers(repository.NewUserRepo(db), database.NewTxRunner(db), cfg.BcryptCost).Create(ctx, service.UserInput{
		Fullname: &fullname,
		Username: &newUser.username,
		Password: newUser.password,
		Role:     &newUser.role,
	})
	if err != nil {
		return err
	}
	lg.Info("user created", zap.Uint64("id", u.ID), zap.String("username", u.Username), zap.String("role", u.Role))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Println(err)
		os.Exit(1)
	}
}
