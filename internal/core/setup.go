package core

import (
	"context"

	"tx-coordinator/internal/config"
	"tx-coordinator/internal/coordinator"
	"tx-coordinator/internal/hub"
	"tx-coordinator/internal/pkg/logger"
)

// Setup loads the configuration, plans the migration and opens one
// transaction per schema. On success the returned participants are ready
// for the coordinator and Teardown will close every opened pool.
func Setup(ctx context.Context, cfgFile, dir string) ([]coordinator.Tx, error) {
	dbs, err := config.Load(cfgFile)
	if err != nil {
		logger.Instance.Error(ctx, "failed to load config", logger.String("cfg", cfgFile), logger.Error(err))
		return nil, err
	}

	h, err := hub.New(dir, dbs)
	if err != nil {
		logger.Instance.Error(ctx, "failed to plan migration", logger.String("dir", dir), logger.Error(err))
		return nil, err
	}

	for _, unit := range h.Units() {
		logger.Instance.Info(ctx, "planned migration unit",
			logger.String("schema", unit.Schema),
			logger.String("secret", logger.MaskSecret(unit.Secret)),
			logger.Int("sql_files", len(unit.SQLFiles)),
		)
	}

	txs, pools, err := h.BuildParticipants()
	setPools(pools)
	if err != nil {
		logger.Instance.Error(ctx, "failed to build participants", logger.Error(err))
		return nil, err
	}

	return txs, nil
}
