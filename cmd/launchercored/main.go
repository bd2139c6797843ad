package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/itzg/go-flagsfiller"
	"github.com/itzg/zapconfigs"
	"go.uber.org/zap"

	"github.com/quasar/launchercore/internal/corepath"
	"github.com/quasar/launchercore/internal/events"
	"github.com/quasar/launchercore/internal/fetch"
	"github.com/quasar/launchercore/internal/instance"
	"github.com/quasar/launchercore/internal/java"
	"github.com/quasar/launchercore/internal/launcher"
	"github.com/quasar/launchercore/internal/mcversion"
	"github.com/quasar/launchercore/internal/modrinth"
	"github.com/quasar/launchercore/internal/server"
)

// Args are the daemon's command-line flags, filled by go-flagsfiller from
// the command line only; environment variables are not consulted.
type Args struct {
	Debug       bool   `usage:"Enable debug logging"`
	Listen      string `default:":7890" usage:"Address to listen on for the command/event HTTP surface"`
	DataDir     string `usage:"Override the default per-user data root"`
	Concurrency int    `default:"6" usage:"Maximum concurrent downloads"`
}

func main() {
	var args Args
	if err := flagsfiller.Parse(&args); err != nil {
		log.Fatal(err)
	}

	var logger *zap.Logger
	if args.Debug {
		logger = zapconfigs.NewDebugLogger()
	} else {
		logger = zapconfigs.NewDefaultLogger()
	}
	defer logger.Sync()
	logger = logger.Named("launchercored")

	root, err := resolveRoot(args.DataDir)
	if err != nil {
		logger.Fatal("resolving data root", zap.Error(err))
	}
	if err := root.EnsureDirs(); err != nil {
		logger.Fatal("creating data directories", zap.Error(err))
	}
	logger.Info("data root ready", zap.String("path", root.String()))

	store := instance.NewStore(root)
	if err := store.Load(); err != nil {
		logger.Fatal("loading instances", zap.Error(err))
	}

	f := fetch.New(args.Concurrency)
	bus := events.New()
	resolver := mcversion.NewResolver(root, f)
	detector := java.NewDetector()
	launch := launcher.New(root, resolver, f, bus, store)
	modrinthClient := modrinth.NewClient()

	srv := server.New(server.Deps{
		Log:      logger,
		Root:     root,
		Store:    store,
		Resolver: resolver,
		Fetcher:  f,
		Bus:      bus,
		Launcher: launch,
		Detector: detector,
		Modrinth: modrinthClient,
	})

	httpServer := &http.Server{
		Addr:    args.Listen,
		Handler: srv.Router(),
	}

	go func() {
		logger.Info("listening", zap.String("addr", args.Listen))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGTERM, os.Interrupt)
	<-termChan

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}

func resolveRoot(override string) (corepath.Root, error) {
	if override != "" {
		return corepath.Root(override), nil
	}
	root, err := corepath.DefaultRoot()
	if err != nil {
		return "", fmt.Errorf("resolving default data root: %w", err)
	}
	return root, nil
}
