// Package extract turns upstream API payloads into domain records.
//
// Optional fields fall back to their zero value. A record missing one of its key fields is
// dropped; every drop is logged at warn level and counted so the caller can report it.
package extract

import (
	"context"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/logger"
)

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// nonEmpty returns p unless it points to an empty string
func nonEmpty(p *string) *string {
	if p == nil || *p == "" {
		return nil
	}
	return p
}

func logDrop(ctx context.Context, entity string, reason string, fields ...zap.Field) {
	logger.WarnCtx(ctx, "Dropped "+entity+" record", append(fields, zap.String("reason", reason))...)
}
