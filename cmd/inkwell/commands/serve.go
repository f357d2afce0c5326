package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/inkwell-md/inkwell/internal/adapter"
	"github.com/inkwell-md/inkwell/internal/config"
	"github.com/inkwell-md/inkwell/internal/content"
	"github.com/inkwell-md/inkwell/internal/docstore"
	"github.com/inkwell-md/inkwell/internal/editsession"
	"github.com/inkwell-md/inkwell/internal/logging"
	"github.com/inkwell-md/inkwell/internal/pathguard"
	"github.com/inkwell-md/inkwell/internal/preview"
	"github.com/inkwell-md/inkwell/internal/server"
	"github.com/inkwell-md/inkwell/internal/watcher"
)

var (
	servePort   int
	serveHost   string
	serveDir    string
	serveConfig string
	serveDev    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inkwell HTTP service",
	Long: `Start the inkwell service that exposes the edit-session API.

The API is reserved for development use: without --dev (or "dev": true
in the configuration) every route answers 403.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 4711, "Port to listen on")
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to listen on")
	serveCmd.Flags().StringVar(&serveDir, "dir", "", "Project directory (defaults to the working directory)")
	serveCmd.Flags().StringVar(&serveConfig, "config", "", "Extra config file, merged over discovered ones")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "Enable development mode")
}

func runServe(cmd *cobra.Command, args []string) error {
	workDir, err := GetWorkDir(serveDir)
	if err != nil {
		return err
	}

	if serveConfig != "" {
		os.Setenv("INKWELL_CONFIG", serveConfig)
	}

	appConfig, err := config.Load(workDir)
	if err != nil {
		return err
	}
	if serveDev {
		appConfig.Dev = true
	}

	validator, err := content.New(appConfig.Rules)
	if err != nil {
		return fmt.Errorf("front matter rules: %w", err)
	}

	store := docstore.New(afero.NewOsFs(), pathguard.Options{
		Extensions: appConfig.Extensions,
		Roots:      appConfig.Roots,
	})

	var engine preview.Engine = preview.NewMarkdownEngine()
	if !appConfig.PreviewEnabled() {
		engine = preview.Disabled()
	}

	registry := adapter.NewRegistry(appConfig.Adapter)
	registry.Register(adapter.NewMarkdown(engine, validator))
	registry.Register(adapter.Plain{})

	manager := editsession.NewManager(editsession.Config{
		Store:     store,
		Registry:  registry,
		Validator: validator,
		Debounce:  time.Duration(appConfig.DebounceMs) * time.Millisecond,
		Preview:   appConfig.PreviewEnabled(),
		Endpoint:  "/api/content",
		Dev:       appConfig.Dev,
	})

	if appConfig.WatchEnabled() {
		var ignore []string
		if appConfig.Watch != nil {
			ignore = appConfig.Watch.Ignore
		}
		w, err := watcher.New(watcher.Options{
			Roots:      watcher.BaseDirs(appConfig.Roots),
			Extensions: appConfig.Extensions,
			Ignore:     ignore,
		})
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		if w != nil {
			w.Start()
			defer w.Stop()
		}
	}

	serverConfig := server.DefaultConfig()
	serverConfig.Host = serveHost
	serverConfig.Port = servePort

	srv := server.New(serverConfig, appConfig, store, manager, registry, validator, engine)

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logging.Fatal().Err(err).Msg("server error")
		}
	}()

	fmt.Printf("inkwell %s listening on http://%s:%d\n", Version, serveHost, servePort)
	if !appConfig.Dev {
		fmt.Println("development mode is off; the API answers 403 (pass --dev to enable)")
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	fmt.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("shutdown error")
	}
	return nil
}
