package tui_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/internal/presentation/tui"
	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner_Plain(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0\n", "native")
	assert.Equal(t, " stepmesh  v0.1.0  kernel: native\n\n", buf.String())
	assert.False(t, tui.IsTerminal(&buf))
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer
	p := tui.NewPrinter(&buf)
	p.Info("objects found: %d", 3)
	p.Warn("skipping %s (no shape)", "Sketch")
	p.Success("saved %s", "part_000_Body.stl")
	p.Fail("manifest not saved")

	assert.Equal(t, ">>> objects found: 3\n! skipping Sketch (no shape)\n✔ saved part_000_Body.stl\n✘ manifest not saved\n", buf.String())
}

func TestInspectMarkdown(t *testing.T) {
	bbox := domain.BoundBox{Min: domain.Vec3{0, 0, 0}, Max: domain.Vec3{10, 10, 10}}
	md := tui.InspectMarkdown(&stepmesh.InspectReport{
		Source: "machine.step",
		Kernel: "native",
		Objects: []stepmesh.ObjectInfo{
			{Index: 0, Name: "Assembly", HasShape: true, Null: true},
			{Index: 1, Name: "Cube|A", HasShape: true, BBox: &bbox, File: "part_001_Cube|A.stl"},
			{Index: 2, Name: "Sketch"},
		},
		BBox: &bbox,
	})

	assert.Contains(t, md, "# machine.step")
	assert.Contains(t, md, "| 0 | Assembly | null | - | - |")
	assert.Contains(t, md, `| 1 | Cube\|A | ok | (5.000, 5.000, 5.000) | (10.000, 10.000, 10.000) |`)
	assert.Contains(t, md, "| 2 | Sketch | none |")
	assert.Contains(t, md, "Model bounds: (0.000, 0.000, 0.000) to (10.000, 10.000, 10.000)")

	out, err := tui.NewRenderer(true)(md)
	require.NoError(t, err)
	assert.Equal(t, md, out)

	rendered, err := tui.NewRenderer(false)(md)
	require.NoError(t, err)
	assert.Contains(t, rendered, "Assembly")
}

func TestResultsMarkdown(t *testing.T) {
	md := tui.ResultsMarkdown("Export", []domain.ObjectResult{
		{Index: 0, Name: "Body", Status: domain.StatusConverted, Faces: 12, File: "part_000_Body.stl"},
		{Index: 1, Name: "Sketch", Status: domain.StatusSkipped, Reason: domain.ErrNoShape},
	})
	assert.Contains(t, md, "**1** converted, **1** skipped, **0** failed (12 faces)")
	assert.Contains(t, md, "| 0 | Body | converted | 12 | part_000_Body.stl |")
	assert.Contains(t, md, "| 1 | Sketch | skipped | 0 | object has no shape |")

	empty := tui.ResultsMarkdown("Convert", nil)
	assert.False(t, strings.Contains(empty, "|"))
}

func TestProgressHooks(t *testing.T) {
	var buf bytes.Buffer
	hooks := tui.ProgressHooks(&buf, "exporting")
	ctx := context.Background()

	for i, name := range []string{"Body", "Lid"} {
		e := &domain.ObjectEvent{Total: 2, Result: domain.ObjectResult{Index: i, Name: name}}
		hooks.OnObjectStart(ctx, e)
		hooks.OnObjectDone(ctx, e)
	}
	assert.Contains(t, buf.String(), "exporting")
}
