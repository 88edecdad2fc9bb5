// Package status derives the rolled-up pipeline status of a document and
// the per-stage progress markers shown next to it.
//
// Every function here is pure: the result depends only on the record passed
// in, so callers may evaluate records in any order and as often as they like.
package status

import "github.com/timmy/doctranslate/internal/domain"

// AggregateStatus is the single state derived from all four stage fields.
type AggregateStatus int

const (
	InProgress AggregateStatus = iota
	Completed
	Failed
)

// String returns the display name of the status.
func (s AggregateStatus) String() string {
	switch s {
	case Completed:
		return "Completed"
	case Failed:
		return "Failed"
	default:
		return "In Progress"
	}
}

// VisualState is the marker rendered for a single stage.
type VisualState int

const (
	Pending VisualState = iota
	Done
	StageFailed
)

// String returns the lower-case marker name.
func (v VisualState) String() string {
	switch v {
	case Done:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Aggregate rolls the four stage fields up into one status.
// A failed stage dominates; Completed requires every stage to be done.
func Aggregate(doc *domain.Document) AggregateStatus {
	allDone := true
	for _, stage := range domain.Stages {
		switch doc.Status(stage) {
		case domain.StageFailed:
			return Failed
		case domain.StageDone:
		default:
			allDone = false
		}
	}
	if allDone {
		return Completed
	}
	return InProgress
}

// StageState returns the marker for one stage, independent of its siblings.
func StageState(doc *domain.Document, stage domain.Stage) VisualState {
	switch doc.Status(stage) {
	case domain.StageDone:
		return Done
	case domain.StageFailed:
		return StageFailed
	default:
		return Pending
	}
}

// Artifact returns the download location of a stage's output.
// ok is true only when that stage is done, whatever the aggregate status is.
func Artifact(doc *domain.Document, stage domain.Stage) (url string, ok bool) {
	if doc.Status(stage) != domain.StageDone {
		return "", false
	}
	return doc.ArtifactPath(stage), true
}

// PrimaryURL returns the most advanced artifact location recorded on the
// document: watermarked, then translated, then the uploaded source.
func PrimaryURL(doc *domain.Document) string {
	for _, path := range []string{doc.WatermarkZonePath, doc.TranslatedZonePath, doc.LandingZonePath} {
		if path != "" {
			return path
		}
	}
	return ""
}

// StageProgress is the render state of one stage.
type StageProgress struct {
	Stage        domain.Stage
	State        VisualState
	ArtifactURL  string
	Downloadable bool
}

// Progress is the full render state of one document.
type Progress struct {
	Aggregate  AggregateStatus
	Spinning   bool
	PrimaryURL string
	Stages     []StageProgress
}

// Describe builds the progress view of a document, stages in pipeline order.
func Describe(doc *domain.Document) Progress {
	agg := Aggregate(doc)
	p := Progress{
		Aggregate:  agg,
		Spinning:   agg == InProgress,
		PrimaryURL: PrimaryURL(doc),
		Stages:     make([]StageProgress, 0, len(domain.Stages)),
	}
	for _, stage := range domain.Stages {
		url, ok := Artifact(doc, stage)
		p.Stages = append(p.Stages, StageProgress{
			Stage:        stage,
			State:        StageState(doc, stage),
			ArtifactURL:  url,
			Downloadable: ok,
		})
	}
	return p
}
