package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/harmonize/internal/job"
	"github.com/sells-group/harmonize/internal/store"
)

// openStore opens the configured run store and ensures its schema.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		s, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		s, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// jobDefaults translates config-level harmonization defaults for job
// loading.
func jobDefaults() job.Defaults {
	d := job.BuiltinDefaults()
	if cfg.Harmonize.Method != "" {
		d.Method = cfg.Harmonize.Method
	}
	if cfg.Harmonize.IndexCol != "" {
		d.IndexCol = cfg.Harmonize.IndexCol
	}
	if cfg.Harmonize.TimeCol != "" {
		d.TimeCol = cfg.Harmonize.TimeCol
	}
	d.AllocateTotal = cfg.Harmonize.AllocateTotal
	d.ForceCRSMatch = cfg.Harmonize.ForceCRSMatch
	if len(cfg.Harmonize.Codes) > 0 {
		d.Codes = append([]int(nil), cfg.Harmonize.Codes...)
	}
	return d
}
