package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/vk/rosettago/internal/catalog"
	"github.com/vk/rosettago/internal/ctxlog"
	"github.com/vk/rosettago/internal/handlers"
	"github.com/vk/rosettago/internal/hclcat"
)

// App encapsulates the application's dependencies, configuration and
// lifecycle: the handler registry, the loaded catalog, and the logger.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	catalog *catalog.Catalog
}

// NewApp returns a fully initialized App: logger configured, operator modules
// registered, catalog loaded from HCL and frozen. A failure to load the
// catalog is a fatal startup error and panics; the entrypoint recovers and
// turns it into a clean exit.
func NewApp(outW io.Writer, cfg *Config, modules ...handlers.Module) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	reg := handlers.New()
	if len(modules) == 0 {
		modules = coreModules
	}
	for _, mod := range modules {
		mod.Register(reg)
	}
	logger.Debug("All operator modules registered.", "count", len(modules))

	cat, err := hclcat.Load(ctx, reg, cfg.CatalogPath)
	if err != nil {
		panic(fmt.Errorf("failed to load catalog: %w", err))
	}
	cat.Freeze()
	logger.Debug("Catalog loaded and frozen.", "operators", cat.Len())

	return &App{
		outW:    outW,
		logger:  logger,
		catalog: cat,
	}
}

// Catalog returns the application's frozen catalog. Primarily for testing.
func (a *App) Catalog() *catalog.Catalog {
	return a.catalog
}
