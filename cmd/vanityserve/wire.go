package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/vanityserve/vanityserve/pkg/config"
	"github.com/vanityserve/vanityserve/pkg/ranking"
	"github.com/vanityserve/vanityserve/pkg/ranking/gemini"
	"github.com/vanityserve/vanityserve/pkg/ranking/httpranker"
	"github.com/vanityserve/vanityserve/pkg/ranking/mock"
	"github.com/vanityserve/vanityserve/pkg/store"
)

// newCollaborator builds the ranker named by cfg.Kind. A nil collaborator
// means programmatic ranking only.
func newCollaborator(ctx context.Context, cfg config.RankerConfig) (ranking.Collaborator, error) {
	switch cfg.Kind {
	case config.RankerNone, "":
		return nil, nil
	case config.RankerMock:
		log.Warn("Using the offline demo ranker: it reverses the programmatic order")
		return mock.Reverse{}, nil
	case config.RankerHTTP:
		c, err := httpranker.New(httpranker.Options{
			Endpoint:  cfg.Endpoint,
			APIKeyEnv: cfg.APIKeyEnv,
		})
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.RankerGemini:
		r, err := gemini.New(ctx, gemini.Options{
			Model:     cfg.Model,
			APIKeyEnv: cfg.APIKeyEnv,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown ranker kind %q", cfg.Kind)
}

// openStore opens the store named by cfg.Kind. A relative or empty sqlite
// path lives under configDir.
func openStore(cfg config.StoreConfig, configDir string) (store.Store, error) {
	switch cfg.Kind {
	case config.StoreNone, "":
		return nil, nil
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreSQLite:
		path := cfg.Path
		if path == "" {
			path = "vanity.db"
		}
		if path != ":memory:" && !filepath.IsAbs(path) {
			path = filepath.Join(configDir, path)
		}
		log.Debugf("Opening result store at: %s", path)
		db, err := store.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}
