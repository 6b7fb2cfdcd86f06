package cli

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/aretw0/stepmesh/pkg/adapters/file"
	"github.com/aretw0/stepmesh/pkg/adapters/process"
	"github.com/aretw0/stepmesh/pkg/adapters/redis"
	"github.com/aretw0/stepmesh/pkg/adapters/step"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/persistence/middleware"
	"github.com/aretw0/stepmesh/pkg/ports"
	"github.com/spf13/afero"
)

// NewKernel builds the CAD kernel selected by the configuration.
func NewKernel(cfg *config.Config, fs afero.Fs, logger *slog.Logger) (ports.Kernel, error) {
	switch cfg.Kernel {
	case config.KernelNative, "":
		return step.New(step.WithFs(fs), step.WithLogger(logger)), nil
	case config.KernelProcess:
		if err := cfg.Process.Validate(); err != nil {
			return nil, err
		}
		return process.New(cfg.Process, process.WithLogger(logger)), nil
	default:
		return nil, fmt.Errorf("%w: unknown kernel %q", domain.ErrKernelUnavailable, cfg.Kernel)
	}
}

// NewPipeline creates a Pipeline with standard CLI conventions: the configured kernel,
// manifest files on disk (also published to Redis, with Redis locks, when redis.addr
// is set) and the given hooks chained.
// The returned cleanup releases the connections the pipeline holds.
func NewPipeline(cfg *config.Config, logger *slog.Logger, hooks ...domain.Hooks) (*stepmesh.Pipeline, func(), error) {
	fs := afero.NewOsFs()
	kernel, err := NewKernel(cfg, fs, logger)
	if err != nil {
		return nil, nil, err
	}

	opts := []stepmesh.Option{
		stepmesh.WithFs(fs),
		stepmesh.WithKernel(kernel),
		stepmesh.WithLogger(logger),
		stepmesh.WithHooks(domain.ChainHooks(hooks...)),
	}
	cleanup := func() {}

	if cfg.Redis.Addr != "" {
		storeOpts := []redis.Option{redis.WithTTL(cfg.Redis.TTL)}
		if cfg.Redis.Prefix != "" {
			storeOpts = append(storeOpts, redis.WithPrefix(cfg.Redis.Prefix))
		}
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, storeOpts...)
		opts = append(opts,
			stepmesh.WithManifestStore(middleware.NewMirrorMiddleware(store)(file.New(fs, ""))),
			stepmesh.WithLocker(redis.NewLocker(store.Client(), cfg.Redis.Prefix)),
		)
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("failed to close redis client", "err", err)
			}
		}
		logger.Debug("publishing manifests to redis", "addr", cfg.Redis.Addr, "db", cfg.Redis.DB)
	}

	return stepmesh.New(opts...), cleanup, nil
}
