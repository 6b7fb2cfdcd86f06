package tui

import (
	"context"
	"io"
	"sync"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/schollz/progressbar/v3"
)

// ProgressHooks drives a progress bar on w from pipeline events.
// The bar is created on the first event, once the object count is known.
func ProgressHooks(w io.Writer, description string) domain.Hooks {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return domain.Hooks{
		OnObjectStart: func(_ context.Context, e *domain.ObjectEvent) {
			mu.Lock()
			defer mu.Unlock()
			if bar == nil {
				bar = progressbar.NewOptions(e.Total,
					progressbar.OptionSetWriter(w),
					progressbar.OptionSetDescription(description),
					progressbar.OptionShowCount(),
					progressbar.OptionClearOnFinish(),
					progressbar.OptionSetWidth(30),
				)
			}
			bar.Describe(description + " " + e.Result.Name)
		},
		OnObjectDone: func(_ context.Context, e *domain.ObjectEvent) {
			mu.Lock()
			defer mu.Unlock()
			if bar != nil {
				_ = bar.Add(1)
			}
		},
	}
}
