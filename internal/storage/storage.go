package storage

import (
	"context"

	"go.uber.org/zap"

	"liquidityStaker/internal/model"
)

// SnapshotSink persists published position snapshots.
type SnapshotSink interface {
	PutSnapshot(ctx context.Context, snap model.Snapshot) error
}

// Observer returns a publish callback that hands every snapshot to sinks.
// Sink failures are logged and otherwise ignored.
func Observer(ctx context.Context, logger *zap.Logger, sinks ...SnapshotSink) func(model.Snapshot) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(snap model.Snapshot) {
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.PutSnapshot(ctx, snap); err != nil {
				logger.Warn("persist snapshot failed", zap.String("owner", snap.Owner), zap.Error(err))
			}
		}
	}
}
