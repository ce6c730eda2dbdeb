package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	authgin "github.com/TaxEnough/taxenough/adapters/gin"
	"github.com/TaxEnough/taxenough/adapters/gin/handlers"
	"github.com/TaxEnough/taxenough/adapters/ginutil"
	"github.com/TaxEnough/taxenough/billing"
	"github.com/TaxEnough/taxenough/config"
	"github.com/TaxEnough/taxenough/core"
	"github.com/TaxEnough/taxenough/credential"
	"github.com/TaxEnough/taxenough/entitlement"
	"github.com/TaxEnough/taxenough/gate"
	"github.com/TaxEnough/taxenough/identity"
	jwtkit "github.com/TaxEnough/taxenough/jwt"
	"github.com/TaxEnough/taxenough/ledger"
	migrations "github.com/TaxEnough/taxenough/migrations/postgres"
	oidckit "github.com/TaxEnough/taxenough/oidc"
	memorylimiter "github.com/TaxEnough/taxenough/ratelimit/memory"
	redislimiter "github.com/TaxEnough/taxenough/ratelimit/redis"
	memorystore "github.com/TaxEnough/taxenough/storage/memory"
	redisstore "github.com/TaxEnough/taxenough/storage/redis"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration invalid")
	}
	if cfg.Env == "production" {
		log.SetFormatter(&logrus.JSONFormatter{})
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("server exited")
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := runMigrations(ctx, cfg.DatabaseURL, pool); err != nil {
		return err
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return err
		}
		rdb = redis.NewClient(opt)
		defer rdb.Close()
	} else {
		log.Warn("REDIS_URL empty, using in-memory caches and rate limits")
	}

	// Storage collaborators. Redis when configured, in-memory otherwise.
	var (
		planCache  core.PlanCache
		stateCache oidckit.StateCache
		dedupe     handlers.WebhookDedupe
		limiter    ginutil.RateLimiter
	)
	if rdb != nil {
		planCache = redisstore.NewPlanCache(rdb, "", 0)
		stateCache = redisstore.NewStateCache(rdb, "", 0)
		dedupe = redisstore.NewWebhookDedupe(rdb, "", 0)
		limiter = redislimiter.New(rdb, redisLimits())
	} else {
		planCache = memorystore.NewPlanCache(0)
		stateCache = memorystore.NewStateCache(0)
		dedupe = memorystore.NewWebhookDedupe(0)
		limiter = memorylimiter.New(memoryLimits())
	}

	users := identity.NewStore(pool)
	ledgerStore := ledger.NewStore(pool)

	signer, err := jwtkit.NewHMACSigner(cfg.Auth.TokenSecret, cfg.Auth.TokenTTL, cfg.Auth.RefreshWindow)
	if err != nil {
		return err
	}

	var profiles oidckit.ProfileAPI
	if cfg.Hosted.APIBaseURL != "" {
		profiles = oidckit.NewProfileClient(cfg.Hosted.APIBaseURL, cfg.Hosted.APIKey, cfg.Hosted.CallTimeout)
	}

	var rp *oidckit.RelyingParty
	providers := make([]credential.Provider, 0, 2)
	if cfg.Hosted.IssuerURL != "" {
		rp, err = oidckit.NewRelyingParty(ctx, cfg.Hosted.IssuerURL, cfg.Hosted.ClientID, cfg.Hosted.ClientSecret, cfg.Hosted.RedirectURL)
		if err != nil {
			return err
		}
		providers = append(providers, credential.NewHostedProvider(rp, profiles))
	}
	providers = append(providers, credential.NewLocalProvider(signer))

	chain := credential.NewChain(providers, cfg.Auth.StrictFallback, log)
	resolver := entitlement.NewResolver(profiles, planCache, log)
	gateMW := authgin.NewGate(gate.Default(cfg.Gate.AdminEmails, cfg.Gate.BlogHost), chain, resolver, log)
	gateMW.IgnoreStatusCookie = cfg.Auth.StrictFallback

	processor := billing.NewRESTProcessor(cfg.Billing.APIBaseURL, cfg.Billing.APIKey, cfg.Billing.WebhookSecret)
	events := billing.NewEventStore(pool)

	workers := river.NewWorkers()
	river.AddWorker(workers, &billing.SyncEntitlementWorker{
		Profiles: profiles,
		Events:   events,
		Cache:    planCache,
		Log:      log,
	})
	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues:  map[string]river.QueueConfig{river.QueueDefault: {MaxWorkers: 5}},
		Workers: workers,
	})
	if err != nil {
		return err
	}
	if err := riverClient.Start(ctx); err != nil {
		return err
	}

	sweeper := cron.New()
	if _, err := sweeper.AddFunc("@daily", func() {
		if n, err := users.PurgeSigninAuditBefore(context.Background(), time.Now().AddDate(0, 0, -90)); err != nil {
			log.WithError(err).Warn("signin audit sweep failed")
		} else if n > 0 {
			log.WithField("rows", n).Info("signin audit swept")
		}
	}); err != nil {
		return err
	}
	if _, err := sweeper.AddFunc("@daily", func() {
		if n, err := events.PurgeBefore(context.Background(), time.Now().AddDate(0, -6, 0)); err != nil {
			log.WithError(err).Warn("webhook event sweep failed")
		} else if n > 0 {
			log.WithField("rows", n).Info("webhook events swept")
		}
	}); err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	deps := &handlers.Deps{
		Users:              users,
		Signer:             signer,
		RP:                 rp,
		States:             stateCache,
		Profiles:           profiles,
		Billing:            processor,
		Prices:             cfg.Billing.Prices,
		Jobs:               riverClient,
		Dedupe:             dedupe,
		Ledger:             ledgerStore,
		Cache:              planCache,
		Audit:              users,
		Log:                log,
		CheckoutSuccessURL: cfg.BaseURL + cfg.Billing.SuccessURL,
		CheckoutCancelURL:  cfg.BaseURL + cfg.Billing.CancelURL,
		DashboardPath:      "/dashboard",
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           buildRouter(gateMW, deps, limiter),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := riverClient.Stop(shutdownCtx); err != nil {
		log.WithError(err).Warn("job client stop failed")
	}
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// runMigrations applies the schema migrations, then river's own job tables.
func runMigrations(ctx context.Context, dsn string, pool *pgxpool.Pool) error {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return err
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return err
	}

	riverMigrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	_, err = riverMigrator.Migrate(ctx, rivermigrate.DirectionUp, nil)
	return err
}

func redisLimits() map[string]redislimiter.Limit {
	return map[string]redislimiter.Limit{
		ginutil.RLLogin:    {Limit: 10, Window: time.Minute},
		ginutil.RLRegister: {Limit: 5, Window: time.Minute},
		ginutil.RLOAuth:    {Limit: 20, Window: time.Minute},
		ginutil.RLCheckout: {Limit: 10, Window: time.Minute},
		ginutil.RLWebhook:  {Limit: 300, Window: time.Minute},
		ginutil.RLLedger:   {Limit: 60, Window: time.Minute},
	}
}

func memoryLimits() map[string]memorylimiter.Limit {
	return map[string]memorylimiter.Limit{
		ginutil.RLLogin:    {Limit: 10, Window: time.Minute},
		ginutil.RLRegister: {Limit: 5, Window: time.Minute},
		ginutil.RLOAuth:    {Limit: 20, Window: time.Minute},
		ginutil.RLCheckout: {Limit: 10, Window: time.Minute},
		ginutil.RLWebhook:  {Limit: 300, Window: time.Minute},
		ginutil.RLLedger:   {Limit: 60, Window: time.Minute},
	}
}
