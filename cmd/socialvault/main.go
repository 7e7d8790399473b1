package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	rdb "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/socialvault/internal/audit"
	"github.com/dropDatabas3/socialvault/internal/config"
	"github.com/dropDatabas3/socialvault/internal/connect"
	"github.com/dropDatabas3/socialvault/internal/connect/providers"
	"github.com/dropDatabas3/socialvault/internal/http/handlers"
	"github.com/dropDatabas3/socialvault/internal/http/router"
	"github.com/dropDatabas3/socialvault/internal/identity"
	"github.com/dropDatabas3/socialvault/internal/observability/logger"
	"github.com/dropDatabas3/socialvault/internal/rate"
	"github.com/dropDatabas3/socialvault/internal/refresh"
	"github.com/dropDatabas3/socialvault/internal/security/secretbox"
	"github.com/dropDatabas3/socialvault/internal/security/servicetoken"
	"github.com/dropDatabas3/socialvault/internal/store"
	"github.com/dropDatabas3/socialvault/internal/store/memory"
	"github.com/dropDatabas3/socialvault/internal/store/pg"
	"github.com/dropDatabas3/socialvault/internal/workflow"
	migrations "github.com/dropDatabas3/socialvault/migrations/postgres"
)

func main() {
	root := &cobra.Command{
		Use:           "socialvault",
		Short:         "Bóveda de credenciales y tokens para cuentas sociales",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), encCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Levanta el servidor HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load(cfgPath)
			if err != nil {
				return fmt.Errorf("cargar config: %w", err)
			}

			logger.Init(logger.Config{
				Env:         cfg.App.Env,
				Level:       os.Getenv("SOCIALVAULT_LOG_LEVEL"),
				ServiceName: "socialvault",
			})
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			return serve(cfg, log)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "config.yaml", "ruta del YAML de configuración")
	return cmd
}

func serve(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- storage ---
	var (
		creds      store.CredentialStore
		secrets    store.SecretStore
		sink       audit.Sink
		checkStore func(ctx context.Context) error
	)
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := pg.Connect(ctx, cfg.Storage.DSN)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		creds = pg.New(pool)
		secrets = pg.NewSecrets(pool)
		sink = audit.NewPGSink(pool)
		checkStore = pool.Ping
	case "memory":
		log.Warn("storage en memoria: solo para desarrollo")
		mem := memory.New()
		creds = mem
		secrets = memory.Secrets{Store: mem}
		sink = audit.NewLogSink(logger.Named("audit"))
	}

	// --- cache compartido: limiter + nonce store ---
	var (
		limiter    rate.Limiter
		nonces     connect.NonceStore
		checkCache func(ctx context.Context) error
	)
	if cfg.Cache.Kind == "redis" {
		client := rdb.NewClient(&rdb.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		defer client.Close()
		limiter = rate.NewRedisLimiter(client, cfg.Cache.Redis.Prefix+":rl:")
		nonces = connect.NewRedisNonceStore(client, cfg.Cache.Redis.Prefix+":nonce:")
		checkCache = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	} else {
		log.Warn("limiter en memoria: los cupos no se comparten entre instancias")
		limiter = rate.NewMemoryLimiter()
		nonces = connect.NewMemoryNonceStore()
	}

	// --- providers ---
	registry := connect.NewRegistry()
	providers.RegisterAll(registry)
	for name, p := range cfg.Providers {
		if !p.Enabled {
			continue
		}
		err := registry.Configure(name, connect.Config{
			ClientID:     p.ClientID,
			ClientSecret: p.ClientSecret,
			RedirectURI:  p.RedirectURI,
			Scopes:       p.Scopes,
		})
		if err != nil {
			return err
		}
	}
	log.Info("providers configurados", zap.Strings("providers", registry.Available()))

	states, err := connect.NewStateCodec(cfg.Security.StateSecret)
	if err != nil {
		return err
	}
	svc := connect.NewService(registry, creds, states, nonces, logger.Named("connect"))
	refresher := refresh.New(registry, creds, logger.Named("refresh"))
	verifier := identity.NewJWTVerifier(cfg.Security.IdentitySecret, cfg.Security.IdentityIssuer)

	var wf *workflow.Client
	if cfg.Workflow.BaseURL != "" {
		minter, err := servicetoken.NewMinter(cfg.Security.ServiceSecret)
		if err != nil {
			return err
		}
		wf = workflow.NewClient(cfg.Workflow.BaseURL, minter, logger.Named("workflow"))
	}

	// secretbox tiene que estar operativo antes de aceptar tráfico
	if _, err := secretbox.Encrypt("boot-check"); err != nil {
		return fmt.Errorf("secretbox: %w", err)
	}

	// --- http ---
	deps := router.Deps{
		Verifier:       verifier,
		Limiter:        limiter,
		AuditSink:      sink,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	}
	hs := router.Handlers{
		ConnectStart:    handlers.NewConnectStartHandler(svc, logger.Named("http")),
		ConnectCallback: handlers.NewConnectCallbackHandler(svc, wf, sink, logger.Named("http")),
		SaveKey:         handlers.NewSaveKeyHandler(secrets, logger.Named("http")),
		ValidateKey:     handlers.NewValidateKeyHandler(logger.Named("http")),
		DeleteKey:       handlers.NewDeleteKeyHandler(secrets, logger.Named("http")),
		RefreshCred:     handlers.NewRefreshCredentialHandler(refresher, creds, logger.Named("http")),
		ListCreds:       handlers.NewListCredentialsHandler(creds, logger.Named("http")),
		Disconnect:      handlers.NewDisconnectHandler(creds, logger.Named("http")),
		Readyz:          handlers.NewReadyzHandler(checkStore, checkCache, logger.Named("http")),
	}
	limits := router.Limits{
		ConnectStart: router.GateConfig{
			RateLimitKey: "connect.start", RateLimitMax: cfg.Rate.ConnectStart.Limit,
			RateLimitWindow: cfg.Rate.ConnectStart.WindowDuration(), AuditAction: "connect.start",
		},
		KeysSave: router.GateConfig{
			RateLimitKey: "keys.save", RateLimitMax: cfg.Rate.KeysSave.Limit,
			RateLimitWindow: cfg.Rate.KeysSave.WindowDuration(), AuditAction: "keys.save",
		},
		KeysValidate: router.GateConfig{
			RateLimitKey: "keys.validate", RateLimitMax: cfg.Rate.KeysValidate.Limit,
			RateLimitWindow: cfg.Rate.KeysValidate.WindowDuration(),
		},
		Refresh: router.GateConfig{
			RateLimitKey: "credentials.refresh", RateLimitMax: cfg.Rate.Refresh.Limit,
			RateLimitWindow: cfg.Rate.Refresh.WindowDuration(),
		},
	}
	if !cfg.Rate.Enabled {
		// Max 0 = la puerta no arma el middleware de rate limit
		log.Warn("rate limiting deshabilitado por config")
		limits.ConnectStart.RateLimitMax = 0
		limits.KeysSave.RateLimitMax = 0
		limits.KeysValidate.RateLimitMax = 0
		limits.Refresh.RateLimitMax = 0
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router.New(deps, hs, limits),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("servidor escuchando", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("apagando servidor")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// migrateCmd aplica las migraciones SQL embebidas, en orden de nombre.
func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones de esquema en PostgreSQL",
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			dsn := os.Getenv("SOCIALVAULT_DSN")
			if dsn == "" {
				return fmt.Errorf("SOCIALVAULT_DSN no configurado")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			pool, err := pg.Connect(ctx, dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			names, err := fs.Glob(migrations.FS, "*.sql")
			if err != nil {
				return err
			}
			sort.Strings(names)
			for _, name := range names {
				sqlBytes, err := fs.ReadFile(migrations.FS, name)
				if err != nil {
					return err
				}
				if _, err := pool.Exec(ctx, string(sqlBytes)); err != nil {
					return fmt.Errorf("migración %s: %w", name, err)
				}
				fmt.Println("aplicada", name)
			}
			return nil
		},
	}
}

// encCmd es la herramienta de operaciones para cifrar/descifrar valores con
// el secreto maestro del servicio (rotaciones, inspección de blobs).
func encCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enc",
		Short: "Cifra/descifra valores con el secreto maestro",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt <valor>",
		Short: "Imprime el blob cifrado del valor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			blob, err := secretbox.Encrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(blob)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decrypt <blob>",
		Short: "Imprime el valor plano del blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			pt, err := secretbox.Decrypt(args[0])
			if err != nil {
				return err
			}
			fmt.Println(pt)
			return nil
		},
	})
	return cmd
}
