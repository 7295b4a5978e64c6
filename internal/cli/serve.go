package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"semzo-prive/config"
	"semzo-prive/database"
	"semzo-prive/internal/alerts"
	adminapi "semzo-prive/internal/api/admin"
	authapi "semzo-prive/internal/api/auth"
	identityapi "semzo-prive/internal/api/identity"
	membershipapi "semzo-prive/internal/api/membership"
	"semzo-prive/internal/api/plans"
	stripewebhooks "semzo-prive/internal/api/stripewebhook"
	"semzo-prive/internal/api/users"
	routes "semzo-prive/internal/app/http"
	"semzo-prive/internal/app/http/middleware"
	"semzo-prive/internal/infra/stripe"
	"semzo-prive/internal/logging"
	"semzo-prive/internal/membership"
	"semzo-prive/internal/notify"
	"semzo-prive/internal/session"
	"semzo-prive/internal/store"
	"semzo-prive/internal/verification"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownGrace = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Config{Level: cfg.Log.Level, Dev: cfg.Log.Dev, File: cfg.Log.File})
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.Open(cfg.DBURL)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, cfg.Currency); err != nil {
		return err
	}

	st := store.New(db)
	gw := stripe.NewClient(cfg.Stripe.SecretKey)
	mailer := notify.New(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, log)
	tokens := session.NewTokens(cfg.JWTSecret)
	raiser := alerts.NewRaiser(st, mailer, cfg.AdminEmail, log)
	memberships := membership.NewService(st, gw, mailer, raiser, log)
	identities := verification.NewService(st, gw, mailer, raiser, cfg.SiteURL, log)

	var google *authapi.Google
	if cfg.Google.Enabled() {
		google = authapi.NewGoogle(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL,
			cfg.Google.FrontendRedirect, cfg.AppEnv != "dev")
	}

	if cfg.AppEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(log), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r, routes.Handlers{
		Tokens:     tokens,
		Auth:       authapi.NewHandler(st, tokens, google, log),
		GoogleAuth: google != nil,
		Membership: membershipapi.NewHandler(memberships, log),
		Identity:   identityapi.NewHandler(identities, log),
		Webhooks: stripewebhooks.NewHandler(st, memberships, identities, raiser, stripewebhooks.Secrets{
			Payments: cfg.Stripe.WebhookSecret,
			Identity: cfg.Stripe.IdentityWebhookSecret,
		}, log),
		Users: users.NewHandler(st, log),
		Plans: plans.NewHandler(st, gw, cfg.Currency, log),
		Admin: adminapi.NewHandler(st, memberships, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}
