package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/sage/internal/api"
	"github.com/kalambet/sage/internal/config"
	"github.com/kalambet/sage/internal/corpus"
	"github.com/kalambet/sage/internal/dialogue"
	"github.com/kalambet/sage/internal/logging"
	"github.com/kalambet/sage/internal/watch"
)

// corpusFiles are the file names the file backend keeps the corpora in.
var corpusFiles = []string{
	corpus.IntentsDoc + ".json",
	corpus.SynonymsDoc + ".json",
	corpus.LanguageDoc + ".json",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the sage server (foreground)",
	Long: `Start the HTTP API. With --mcp the engine is also served as MCP tools over
stdio; with --watch the corpus files are reloaded when edited on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		withWatch, _ := cmd.Flags().GetBool("watch")
		return runServer(withMCP, withWatch)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running sage server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sage server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus()
	},
}

func init() {
	serveCmd.Flags().Bool("mcp", false, "also serve MCP tools over stdio")
	serveCmd.Flags().Bool("watch", false, "reload corpora when their files change")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "sage.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func runServer(withMCP, withWatch bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logCloser, err := logging.Setup(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	slog.Info("starting sage", "version", version, "backend", cfg.Storage.Backend, "data_dir", cfg.Storage.DataDir)

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	di := newInjector(cfg)
	defer func() {
		if err := di.Shutdown(); err != nil {
			slog.Warn("shutting down services", "error", err)
		}
	}()

	e, err := do.Invoke[*dialogue.Engine](di)
	if err != nil {
		return err
	}
	stats := e.Stats()
	slog.Info("corpora loaded",
		"intents", stats.Intents,
		"patterns", stats.Patterns,
		"synonym_groups", stats.SynonymGroups,
		"command_types", stats.CommandTypes,
	)
	if cfg.Server.APIToken == "" {
		slog.Warn("server.api_token not set, HTTP API is unauthenticated")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: api.NewHandler(e, cfg.Server.APIToken),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("sage listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if withMCP {
		stdioSrv := server.NewStdioServer(api.NewMCPServer(e, version))
		g.Go(func() error {
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	if withWatch {
		b := do.MustInvoke[*backendService](di)
		dir, ok := b.watchDir()
		if !ok {
			slog.Warn("--watch needs the file storage backend, not watching", "backend", cfg.Storage.Backend)
		} else {
			w, err := watch.New(dir, corpusFiles, watch.DefaultDebounce, func() {
				slog.Info("corpus files changed, reloading")
				e.Reload()
			})
			if err != nil {
				return fmt.Errorf("starting corpus watcher: %w", err)
			}
			g.Go(func() error {
				return w.Run(gctx)
			})
		}
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		return fmt.Errorf("sage is not running (no PID file): %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", pid, err)
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		removePIDFile(pidPath)
		return fmt.Errorf("stopping sage (PID %d): %w", pid, err)
	}

	printSuccess("Sent stop signal to sage (PID %d)", pid)
	return nil
}

func showStatus() error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		health, herr := readHealth(resp)
		switch {
		case herr != nil:
			printStatus("Server", "error (%v)", herr)
		default:
			printStatus("Server", "running on port %d", cfg.Server.Port)
			printStatus("Session", "%s", health.Session)
			printStatus("Intents", "%d (%d patterns)", health.Stats.Intents, health.Stats.Patterns)
			printStatus("Synonym groups", "%d", health.Stats.SynonymGroups)
			printStatus("Command types", "%d", health.Stats.CommandTypes)
			printStatus("Context types", "%d", health.Stats.ContextTypes)
			printStatus("Turns", "%d", health.Stats.Turns)
		}
	}

	printStatus("Backend", "%s", cfg.Storage.Backend)
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	printStatus("Tagger", "%s", cfg.NLP.Tagger)
	return nil
}

type healthResponse struct {
	Status  string         `json:"status"`
	Session string         `json:"session"`
	Stats   dialogue.Stats `json:"stats"`
}

func readHealth(resp *http.Response) (healthResponse, error) {
	var h healthResponse
	if err := decodeJSON(resp, &h); err != nil {
		return healthResponse{}, err
	}
	if h.Status != "ok" {
		return healthResponse{}, fmt.Errorf("unexpected status %q", h.Status)
	}
	return h, nil
}
