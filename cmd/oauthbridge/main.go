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

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/oauthbridge/internal/config"
	"github.com/dropDatabas3/oauthbridge/internal/http/controllers/authflow"
	"github.com/dropDatabas3/oauthbridge/internal/http/router"
	"github.com/dropDatabas3/oauthbridge/internal/metrics"
	"github.com/dropDatabas3/oauthbridge/internal/observability/logger"
	"github.com/dropDatabas3/oauthbridge/internal/state"
	"github.com/dropDatabas3/oauthbridge/internal/store/core"
	"github.com/dropDatabas3/oauthbridge/internal/store/memory"
	"github.com/dropDatabas3/oauthbridge/internal/store/pg"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string

	root := &cobra.Command{
		Use:   "oauthbridge",
		Short: "OAuth 1.0a / 2.0 client integration layer",
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", envOr("CONFIG_PATH", "config.yaml"), "ruta del archivo de configuración")

	root.AddCommand(serveCmd(&cfgPath))
	root.AddCommand(migrateCmd(&cfgPath))
	root.AddCommand(providersCmd(&cfgPath))

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); err != nil {
		// sin archivo: defaults + ENV alcanzan para dev
		return config.Default(), nil
	}
	return config.Load(path)
}

func serveCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor de flujos OAuth",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "oauthbridge"})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("main")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Association store
			var associations core.Associations
			switch cfg.Storage.Driver {
			case "postgres":
				store, err := pg.Connect(ctx, cfg.Storage.DSN, cfg.Storage.Postgres.MaxConns)
				if err != nil {
					return err
				}
				defer store.Close()
				associations = store
				log.Info("association store ready", logger.Component("pg"))
			default:
				associations = memory.New()
				log.Info("association store ready", logger.Component("memory"))
			}

			// Handshake state store
			var pending state.Store
			switch cfg.State.Kind {
			case "redis":
				rs := state.NewRedis(cfg.State.Redis.Addr, cfg.State.Redis.DB, cfg.State.Redis.Prefix)
				if err := rs.Ping(ctx); err != nil {
					return fmt.Errorf("redis ping: %w", err)
				}
				pending = rs
				log.Info("state store ready", logger.Component("redis"))
			default:
				pending = state.NewMemory(cfg.StateTTL())
				log.Info("state store ready", logger.Component("memory"))
			}

			callbacks := authflow.NewRegistry(&authflow.PersistingCallback{
				Associations:    associations,
				UserFromRequest: authflow.HeaderUser("X-User-ID"),
			})

			handler := router.New(router.Deps{
				Controllers: &authflow.Controllers{
					Settings:    cfg.Providers,
					State:       pending,
					Callbacks:   callbacks,
					CookieName:  cfg.Server.SessionCookie,
					StateSecret: cfg.Server.StateSecret,
					StateTTL:    cfg.StateTTL(),
				},
			})

			appSrv := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}

			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", metrics.Register(nil))
			metricsSrv := &http.Server{
				Addr:              cfg.Server.MetricsAddr,
				Handler:           metricsMux,
				ReadHeaderTimeout: 10 * time.Second,
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("http server listening", logger.Path(cfg.Server.Addr))
				if err := appSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				log.Info("metrics server listening", logger.Path(cfg.Server.MetricsAddr))
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = metricsSrv.Shutdown(shutCtx)
				return appSrv.Shutdown(shutCtx)
			})

			err = g.Wait()
			log.Info("shutdown complete")
			return err
		},
	}
}

func migrateCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones del association store (postgres)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			if cfg.Storage.Driver != "postgres" {
				return fmt.Errorf("storage driver %q has no migrations", cfg.Storage.Driver)
			}

			logger.Init(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, ServiceName: "oauthbridge"})
			defer func() { _ = logger.Sync() }()
			log := logger.Named("migrate")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, err := pg.Connect(ctx, cfg.Storage.DSN, cfg.Storage.Postgres.MaxConns)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			log.Info("migrations applied")
			return nil
		},
	}
}

func providersCmd(cfgPath *string) *cobra.Command {
	providers := &cobra.Command{
		Use:   "providers",
		Short: "Inspección de la tabla de proveedores",
	}

	providers.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Lista los servicios configurados",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			for name := range cfg.Providers {
				res, err := config.NewResolver(cfg.Providers, name)
				if err != nil {
					return err
				}
				flow := "oauth2"
				if res.OAuth1() {
					flow = "oauth1"
				}
				fmt.Printf("%s\t%s\n", name, flow)
			}
			return nil
		},
	})

	providers.AddCommand(&cobra.Command{
		Use:   "check [service]",
		Short: "Valida la configuración de un servicio (o de todos)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath)
			if err != nil {
				return err
			}
			names := args
			if len(names) == 0 {
				for name := range cfg.Providers {
					names = append(names, name)
				}
			}
			failed := false
			for _, name := range names {
				res, err := config.NewResolver(cfg.Providers, name)
				if err == nil {
					err = res.Validate()
				}
				if err != nil {
					failed = true
					fmt.Printf("%s\tFAIL\t%v\n", name, err)
					continue
				}
				fmt.Printf("%s\tOK\n", name)
			}
			if failed {
				return fmt.Errorf("configuration check failed")
			}
			return nil
		},
	})

	return providers
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
