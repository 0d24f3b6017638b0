package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/evcraddock/grammable/internal/auth"
	"github.com/evcraddock/grammable/internal/logging"
	"github.com/evcraddock/grammable/internal/postgres"
	"github.com/evcraddock/grammable/internal/web"
)

const sessionCleanupInterval = time.Hour

func newServeCmd() *cobra.Command {
	var (
		port  int
		store string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the HTTP server for the web UI and JSON API.

Settings are read from the environment, optionally loaded from a .env file
in the working directory:

  GRAMMABLE_DEV_MODE      text logs at debug level when "true"
  GRAMMABLE_BASE_URL      public URL, also the passkey origin
  GRAMMABLE_SESSION_TTL   sign-in lifetime (e.g. 72h)
  GRAMMABLE_DATABASE_URL  PostgreSQL DSN for --store postgres`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, store)
		},
	}

	cmd.Flags().IntVar(&port, "port", 8080, "port to listen on")
	cmd.Flags().StringVar(&store, "store", "sqlite", "gram and comment store (sqlite|postgres)")

	return cmd
}

func runServe(port int, store string) error {
	if store != "sqlite" && store != "postgres" {
		return fmt.Errorf("unknown store %q (want sqlite or postgres)", store)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	cfg := auth.ConfigFromEnv()
	logging.Setup(cfg.DevMode)

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	opts := web.Options{Auth: cfg}
	if store == "postgres" {
		dsn := os.Getenv("GRAMMABLE_DATABASE_URL")
		if dsn == "" {
			return fmt.Errorf("GRAMMABLE_DATABASE_URL is required for the postgres store")
		}
		pg, err := postgres.Open(dsn)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := pg.Close(); cerr != nil {
				slog.Warn("closing postgres", "err", cerr)
			}
		}()
		opts.Grams = pg.Grams()
		opts.Comments = pg.Comments()
	}

	srv, err := web.NewServer(database, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := auth.NewSessionStore(database, cfg.SecureCookies(), cfg.SessionTTL)
	go cleanupSessions(ctx, sessions, sessionCleanupInterval)

	slog.Info("using store", "store", store)
	return srv.ListenAndServe(ctx, port)
}

// cleanupSessions deletes expired sessions every interval until ctx is done.
func cleanupSessions(ctx context.Context, sessions *auth.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Cleanup(ctx); err != nil {
				slog.Warn("cleaning up sessions", "err", err)
			}
		}
	}
}
