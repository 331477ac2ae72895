package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/leadsweep/leadsweep/internal/engine"
	"github.com/leadsweep/leadsweep/internal/events"
	"github.com/leadsweep/leadsweep/internal/httpapi"
	"github.com/leadsweep/leadsweep/internal/logger"
	"github.com/leadsweep/leadsweep/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Expose the collection engine over HTTP",
	Long: `Serve starts the API: POST /api/v1/leads/collect runs a collection
and returns the leads; GET /api/v1/runs/events streams progress over a
websocket. Runs are serialized because the browser surface tolerates one
run at a time.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("listen", ":8080", "listen address")
	flags.String("db", "", "persist completed runs to this sqlite database")
	flags.String("login-url", "", "CRM login URL")
	flags.String("board-url", "", "CRM lead board URL")
	flags.Bool("headless", true, "run the browser headless")
	flags.Bool("preflight", false, "statically probe the login page before each run")
	flags.Bool("resolver", false, "enable the LLM-backed selector resolver and semantic fallback")
	flags.StringP("provider", "p", "", "resolver provider: anthropic, openai, ollama")
	flags.StringP("model", "m", "", "resolver model name")
	flags.Int("max-scrolls", 60, "hard ceiling on scroll attempts")
	flags.Duration("settle", 1200*time.Millisecond, "settle delay after each scroll")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := engineConfig(cmd)
	if err != nil {
		logError("%v", err)
		return err
	}

	eng, err := engine.New(cfg)
	if err != nil {
		logError("engine startup failed: %v", err)
		return err
	}
	defer eng.Close()

	var st *store.Store
	if dbPath, _ := cmd.Flags().GetString("db"); dbPath != "" {
		st, err = store.Open(dbPath)
		if err != nil {
			logError("run db: %v", err)
			return err
		}
		defer st.Close()
	}

	hub := events.NewHub()
	api := httpapi.New(eng, st, hub)

	listen, _ := cmd.Flags().GetString("listen")
	srv := &http.Server{
		Addr:              listen,
		Handler:           api,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api listening", "addr", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logError("server failed: %v", err)
		return err
	}
}
