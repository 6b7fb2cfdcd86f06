package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/config"
	"github.com/aretw0/stepmesh/internal/presentation/tui"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/observability"
)

// RunOptions contains what every pipeline command needs.
type RunOptions struct {
	Config *config.Config
	// Stdout receives reports, Stderr logs and the progress bar.
	Stdout io.Writer
	Stderr io.Writer
	// JSON prints the machine-readable report instead of the human summary.
	JSON bool
}

// session is one CLI run: the pipeline plus its presentation and metrics.
type session struct {
	opts     RunOptions
	logger   *slog.Logger
	metrics  *observability.Metrics
	pipeline *stepmesh.Pipeline
	printer  *tui.Printer
	cleanup  func()
}

func newSession(opts RunOptions, progress string) (*session, error) {
	logger := NewLogger(opts.Config.Log, opts.Stderr)
	metrics := observability.NewMetrics()

	hooks := []domain.Hooks{metrics.Hooks(), observability.LoggingHooks(logger)}
	if progress != "" && !opts.JSON && tui.IsTerminal(opts.Stderr) {
		hooks = append(hooks, tui.ProgressHooks(opts.Stderr, progress))
	}

	pipeline, cleanup, err := NewPipeline(opts.Config, logger, hooks...)
	if err != nil {
		return nil, err
	}

	s := &session{
		opts:     opts,
		logger:   logger,
		metrics:  metrics,
		pipeline: pipeline,
		printer:  tui.NewPrinter(opts.Stdout),
		cleanup:  cleanup,
	}
	if !opts.JSON {
		tui.PrintBanner(opts.Stdout, stepmesh.Version, pipeline.Kernel().Name())
	}
	return s, nil
}

func (s *session) close() {
	writeMetrics(s.opts.Config, s.metrics, s.logger)
	s.cleanup()
}

func (s *session) printJSON(v any) error {
	enc := json.NewEncoder(s.opts.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (s *session) printMarkdown(markdown string) {
	render := tui.NewRenderer(!tui.IsTerminal(s.opts.Stdout))
	out, err := render(markdown)
	if err != nil {
		out = markdown
	}
	fmt.Fprint(s.opts.Stdout, out)
}

// RunConvert handles the 'convert' command: every object into one STL file.
// It returns domain.ErrNoMeshes, after reporting, when nothing could be tessellated.
func RunConvert(ctx context.Context, input string, opts RunOptions) error {
	s, err := newSession(opts, "")
	if err != nil {
		return err
	}
	defer s.close()

	cfg := opts.Config
	if !opts.JSON {
		s.printer.Info("Converting %s (%s)", input, cfg.Convert.Tolerance)
	}

	report, err := s.pipeline.Convert(ctx, stepmesh.ConvertRequest{
		Input:     input,
		Output:    cfg.Convert.Output,
		Tolerance: cfg.Convert.Tolerance,
	})
	if report == nil {
		s.reportInterrupt(ctx, err)
		return err
	}

	if opts.JSON {
		s.reportInterrupt(ctx, err)
		if jerr := s.printJSON(report); jerr != nil {
			return jerr
		}
		return err
	}

	s.printMarkdown(tui.ResultsMarkdown("Objects", report.Objects))
	switch {
	case IsInterrupted(err):
		s.reportInterrupt(ctx, err)
	case errors.Is(err, domain.ErrNoMeshes):
		s.printer.Warn("No meshes were produced; %s was not written", cfg.Convert.Output)
	case err != nil:
		s.printer.Fail("%v", err)
	default:
		s.printer.Success("Wrote %s: %d vertices, %d faces", report.Output, report.Vertices, report.Faces)
	}
	return err
}

// RunExport handles the 'export' command: one STL per part plus the manifest.
func RunExport(ctx context.Context, input string, opts RunOptions) error {
	s, err := newSession(opts, "Exporting")
	if err != nil {
		return err
	}
	defer s.close()

	cfg := opts.Config
	if !opts.JSON {
		s.printer.Info("Exporting %s into %s (%s)", input, cfg.Export.OutputDir, cfg.Export.Tolerance)
	}

	report, err := s.pipeline.Export(ctx, stepmesh.ExportRequest{
		Input:     input,
		OutputDir: cfg.Export.OutputDir,
		Manifest:  cfg.Export.Manifest,
		Tolerance: cfg.Export.Tolerance,
	})
	if report == nil {
		s.reportInterrupt(ctx, err)
		return err
	}

	if opts.JSON {
		s.reportInterrupt(ctx, err)
		if jerr := s.printJSON(report); jerr != nil {
			return jerr
		}
		return err
	}

	s.printMarkdown(tui.ResultsMarkdown("Parts", report.Objects))
	if IsInterrupted(err) {
		s.reportInterrupt(ctx, err)
		return err
	}
	if err != nil {
		s.printer.Fail("%v", err)
		return err
	}
	if report.Tally.Failed > 0 {
		s.printer.Warn("%d object(s) failed and were left out of the manifest", report.Tally.Failed)
	}
	s.printer.Success("Exported %d part(s), manifest saved to %s", len(report.Manifest.Parts), report.ManifestKey)
	return nil
}

// RunInspect handles the 'inspect' command.
func RunInspect(ctx context.Context, input string, opts RunOptions) error {
	s, err := newSession(opts, "")
	if err != nil {
		return err
	}
	defer s.close()

	report, err := s.pipeline.Inspect(ctx, input)
	if err != nil {
		return err
	}
	if opts.JSON {
		return s.printJSON(report)
	}
	s.printMarkdown(tui.InspectMarkdown(report))
	return nil
}
