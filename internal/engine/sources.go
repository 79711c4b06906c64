package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Priya8975/broadcast-review/internal/config"
	"github.com/Priya8975/broadcast-review/internal/store"
)

// OpenSources connects every configured upstream. Unconfigured ones stay nil
// and fetch as empty. The returned func closes whatever was opened.
func OpenSources(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Sources, func(), error) {
	var (
		sources Sources
		closers []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.SAM.Enabled() {
		sam, err := store.NewPlatformSource(ctx, SourceSAM, cfg.SAM)
		if err != nil {
			closeAll()
			return Sources{}, nil, fmt.Errorf("connecting to %s: %w", SourceSAM, err)
		}
		sources.SAM = sam
		closers = append(closers, func() { sam.Close() })
	} else {
		logger.Warn("platform not configured, its users fetch as empty", "source", SourceSAM)
	}

	if cfg.MCB.Enabled() {
		mcb, err := store.NewPlatformSource(ctx, SourceMCB, cfg.MCB)
		if err != nil {
			closeAll()
			return Sources{}, nil, fmt.Errorf("connecting to %s: %w", SourceMCB, err)
		}
		sources.MCB = mcb
		closers = append(closers, func() { mcb.Close() })
	} else {
		logger.Warn("platform not configured, its users fetch as empty", "source", SourceMCB)
	}

	if cfg.WarehouseURL != "" {
		wh, err := store.NewWarehouse(ctx, cfg.WarehouseURL)
		if err != nil {
			closeAll()
			return Sources{}, nil, fmt.Errorf("connecting to %s: %w", SourceWarehouse, err)
		}
		sources.Warehouse = wh
		closers = append(closers, wh.Close)
	} else {
		logger.Warn("warehouse not configured, transactions fetch as empty", "source", SourceWarehouse)
	}

	return sources, closeAll, nil
}
