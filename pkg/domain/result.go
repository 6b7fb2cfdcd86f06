package domain

import "time"

// ObjectStatus is the outcome of processing one document object.
type ObjectStatus string

const (
	StatusConverted ObjectStatus = "converted" // Mesh produced (and written, for the exporter)
	StatusSkipped   ObjectStatus = "skipped"   // No usable shape
	StatusFailed    ObjectStatus = "failed"    // Tessellation or write error
)

// ObjectResult is the typed per-object outcome aggregated by the pipelines.
type ObjectResult struct {
	Index    int           `json:"index"`
	Name     string        `json:"name"`
	Status   ObjectStatus  `json:"status"`
	Reason   error         `json:"-"`
	File     string        `json:"file,omitempty"`
	Vertices int           `json:"vertices,omitempty"`
	Faces    int           `json:"faces,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Message returns the reason as text, or "" for converted objects.
func (r ObjectResult) Message() string {
	if r.Reason == nil {
		return ""
	}
	return r.Reason.Error()
}

// Tally counts results per status.
type Tally struct {
	Converted int `json:"converted"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
	Vertices  int `json:"vertices"`
	Faces     int `json:"faces"`
}

// Count aggregates a slice of results.
func Count(results []ObjectResult) Tally {
	var t Tally
	for _, r := range results {
		switch r.Status {
		case StatusConverted:
			t.Converted++
			t.Vertices += r.Vertices
			t.Faces += r.Faces
		case StatusSkipped:
			t.Skipped++
		case StatusFailed:
			t.Failed++
		}
	}
	return t
}
