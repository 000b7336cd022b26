package activity

import (
	"context"

	"go.uber.org/zap"
)

// Zap emits activity entries as structured log records. Suitable as a
// default sink when no dedicated audit pipeline exists.
type Zap struct {
	log *zap.Logger
}

var _ Logger = (*Zap)(nil)

// NewZap wraps a zap logger. Pass nil to use zap's no-op logger.
func NewZap(log *zap.Logger) *Zap {
	if log == nil {
		log = zap.NewNop()
	}
	return &Zap{log: log}
}

// LogActivity writes one structured record at info level.
func (z *Zap) LogActivity(_ context.Context, entry Entry) error {
	z.log.Info("activity",
		zap.String("action", entry.Action),
		zap.String("entityType", entry.EntityType),
		zap.String("entityId", entry.EntityID),
		zap.String("workspaceId", entry.WorkspaceID),
		zap.String("actorId", entry.ActorID),
		zap.Any("details", entry.Details),
	)
	return nil
}
