package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/stepmesh/pkg/domain"
)

// LoggingHooks logs object progress: debug on start, info/warn/error on completion.
func LoggingHooks(logger *slog.Logger) domain.Hooks {
	return domain.Hooks{
		OnObjectStart: func(ctx context.Context, e *domain.ObjectEvent) {
			logger.DebugContext(ctx, "processing object",
				"command", e.Command,
				"index", e.Result.Index,
				"name", e.Result.Name,
				"total", e.Total,
			)
		},
		OnObjectDone: func(ctx context.Context, e *domain.ObjectEvent) {
			r := e.Result
			attrs := []any{
				"command", e.Command,
				"index", r.Index,
				"name", r.Name,
				"duration", r.Duration,
			}
			switch r.Status {
			case domain.StatusConverted:
				attrs = append(attrs, "vertices", r.Vertices, "faces", r.Faces)
				if r.File != "" {
					attrs = append(attrs, "file", r.File)
				}
				logger.InfoContext(ctx, "object converted", attrs...)
			case domain.StatusSkipped:
				logger.WarnContext(ctx, "object skipped", append(attrs, "reason", r.Message())...)
			default:
				logger.ErrorContext(ctx, "object failed", append(attrs, "err", r.Reason)...)
			}
		},
	}
}
