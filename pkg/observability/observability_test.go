package observability_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/stepmesh/pkg/domain"
	"github.com/aretw0/stepmesh/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func done(command string, r domain.ObjectResult) *domain.ObjectEvent {
	return &domain.ObjectEvent{Timestamp: time.Now(), Type: domain.EventObjectDone, Command: command, Total: 3, Result: r}
}

func feed(hooks domain.Hooks) {
	ctx := context.Background()
	hooks.OnObjectDone(ctx, done("export", domain.ObjectResult{Index: 0, Name: "Cube", Status: domain.StatusConverted, Vertices: 8, Faces: 12, Duration: 2 * time.Millisecond}))
	hooks.OnObjectDone(ctx, done("export", domain.ObjectResult{Index: 1, Name: "Assembly", Status: domain.StatusSkipped, Reason: domain.ErrNullShape}))
	hooks.OnObjectDone(ctx, done("convert", domain.ObjectResult{Index: 2, Name: "Spring", Status: domain.StatusFailed, Reason: domain.ErrUnsupportedGeometry}))
}

func TestMetrics_Hooks(t *testing.T) {
	m := observability.NewMetrics()
	feed(m.Hooks())

	expected := `
# HELP stepmesh_objects_total Document objects processed, by command and outcome
# TYPE stepmesh_objects_total counter
stepmesh_objects_total{command="convert",status="failed"} 1
stepmesh_objects_total{command="export",status="converted"} 1
stepmesh_objects_total{command="export",status="skipped"} 1
# HELP stepmesh_facets_total Triangles produced by successful tessellations
# TYPE stepmesh_facets_total counter
stepmesh_facets_total{command="export"} 12
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "stepmesh_objects_total", "stepmesh_facets_total")
	assert.NoError(t, err)
	assert.Equal(t, 3, testutil.CollectAndCount(m.Registry(), "stepmesh_objects_total"))
}

func TestMetrics_Exposition(t *testing.T) {
	m := observability.NewMetrics()
	feed(m.Hooks())

	t.Run("Handler", func(t *testing.T) {
		rec := httptest.NewRecorder()
		m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `stepmesh_tessellation_seconds_count{command="export"} 2`)
	})

	t.Run("Textfile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "stepmesh.prom")
		require.NoError(t, m.WriteTextfile(path))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `stepmesh_facets_total{command="export"} 12`)

		err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom"))
		assert.Error(t, err)
	})
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := domain.ChainHooks(observability.LoggingHooks(logger), domain.Hooks{})

	hooks.OnObjectStart(context.Background(), &domain.ObjectEvent{Command: "export", Total: 3, Result: domain.ObjectResult{Index: 0, Name: "Cube"}})
	feed(hooks)
	hooks.OnObjectDone(context.Background(), done("export", domain.ObjectResult{Index: 3, Name: "Odd", Status: domain.StatusFailed, Reason: errors.New("disk full")}))

	out := buf.String()
	assert.Contains(t, out, `level=DEBUG msg="processing object" command=export index=0 name=Cube total=3`)
	assert.Contains(t, out, `msg="object converted"`)
	assert.Contains(t, out, "faces=12")
	assert.Contains(t, out, `level=WARN msg="object skipped"`)
	assert.Contains(t, out, `reason="shape is null"`)
	assert.Contains(t, out, `level=ERROR msg="object failed"`)
	assert.Contains(t, out, `err="disk full"`)
}
