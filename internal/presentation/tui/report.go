package tui

import (
	"fmt"
	"strings"

	"github.com/aretw0/stepmesh"
	"github.com/aretw0/stepmesh/pkg/domain"
)

// InspectMarkdown renders an inspect report as a markdown table.
func InspectMarkdown(r *stepmesh.InspectReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", r.Source)
	fmt.Fprintf(&b, "%d objects, kernel `%s`\n\n", len(r.Objects), r.Kernel)
	if len(r.Objects) == 0 {
		return b.String()
	}

	b.WriteString("| # | Name | Shape | Center | Size |\n")
	b.WriteString("|---|------|-------|--------|------|\n")
	for _, o := range r.Objects {
		state := "ok"
		switch {
		case !o.HasShape:
			state = "none"
		case o.Null:
			state = "null"
		}
		center, size := "-", "-"
		if o.BBox != nil {
			center, size = vec(o.BBox.Center()), vec(o.BBox.Size())
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n", o.Index, cell(o.Name), state, center, size)
	}
	if r.BBox != nil {
		fmt.Fprintf(&b, "\nModel bounds: %s to %s\n", vec(r.BBox.Min), vec(r.BBox.Max))
	}
	return b.String()
}

// ResultsMarkdown renders per-object results and their tally.
func ResultsMarkdown(title string, results []domain.ObjectResult) string {
	var b strings.Builder
	t := domain.Count(results)
	fmt.Fprintf(&b, "## %s\n\n", title)
	fmt.Fprintf(&b, "**%d** converted, **%d** skipped, **%d** failed (%d faces)\n\n", t.Converted, t.Skipped, t.Failed, t.Faces)
	if len(results) == 0 {
		return b.String()
	}

	b.WriteString("| # | Name | Status | Faces | Detail |\n")
	b.WriteString("|---|------|--------|-------|--------|\n")
	for _, r := range results {
		detail := r.File
		if r.Reason != nil {
			detail = r.Message()
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %d | %s |\n", r.Index, cell(r.Name), r.Status, r.Faces, cell(detail))
	}
	return b.String()
}

func vec(v domain.Vec3) string {
	return fmt.Sprintf("(%.3f, %.3f, %.3f)", v[0], v[1], v[2])
}

// cell escapes table separators.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
