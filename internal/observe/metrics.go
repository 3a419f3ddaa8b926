// Package observe provides application-wide observability primitives for
// Voxtask: OpenTelemetry metrics and a Prometheus exporter bridge.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via a standard /metrics endpoint by the surrounding application.
// Tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Voxtask metrics.
const meterName = "github.com/voxtask/voxtask"

// Metrics holds all OpenTelemetry metric instruments for the engine.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Counters ---

	// WakeDetections counts wake-phrase detections.
	WakeDetections metric.Int64Counter

	// RecognitionErrors counts classified recognition errors. Use with
	// attribute.String("class", ...).
	RecognitionErrors metric.Int64Counter

	// RecognitionRestarts counts automatic recognition session restarts.
	RecognitionRestarts metric.Int64Counter

	// ListeningDisables counts permanent-disable transitions. Use with
	// attribute.String("cause", ...).
	ListeningDisables metric.Int64Counter

	// DialogueSessions counts completed voice task-creation sessions. Use
	// with attribute.String("outcome", "completed"|"cancelled").
	DialogueSessions metric.Int64Counter

	// SlotReasks counts corrective re-prompts for required slots.
	SlotReasks metric.Int64Counter

	// RemindersScheduled counts reminders accepted by the scheduler.
	RemindersScheduled metric.Int64Counter

	// RemindersFired counts reminder triggers. Use with
	// attribute.String("mode", ...).
	RemindersFired metric.Int64Counter

	// --- Histograms ---

	// UtteranceDuration tracks how long spoken utterances take to synthesise.
	UtteranceDuration metric.Float64Histogram

	// --- Gauges ---

	// ActiveDialogues tracks the number of voice task-creation sessions in
	// progress (0 or 1 in practice — the engine runs one at a time).
	ActiveDialogues metric.Int64UpDownCounter
}

// utteranceBuckets defines histogram bucket boundaries (in seconds) sized for
// short spoken prompts and acknowledgements.
var utteranceBuckets = []float64{
	0.1, 0.25, 0.5, 1, 2, 4, 8, 15,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.WakeDetections, err = m.Int64Counter("voxtask.wake.detections",
		metric.WithDescription("Number of wake-phrase detections."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionErrors, err = m.Int64Counter("voxtask.recognition.errors",
		metric.WithDescription("Number of classified recognition errors."),
	); err != nil {
		return nil, err
	}
	if met.RecognitionRestarts, err = m.Int64Counter("voxtask.recognition.restarts",
		metric.WithDescription("Number of automatic recognition session restarts."),
	); err != nil {
		return nil, err
	}
	if met.ListeningDisables, err = m.Int64Counter("voxtask.recognition.disables",
		metric.WithDescription("Number of permanent listening disables."),
	); err != nil {
		return nil, err
	}
	if met.DialogueSessions, err = m.Int64Counter("voxtask.dialogue.sessions",
		metric.WithDescription("Number of finished voice task-creation sessions."),
	); err != nil {
		return nil, err
	}
	if met.SlotReasks, err = m.Int64Counter("voxtask.dialogue.reasks",
		metric.WithDescription("Number of corrective re-prompts for required slots."),
	); err != nil {
		return nil, err
	}
	if met.RemindersScheduled, err = m.Int64Counter("voxtask.reminders.scheduled",
		metric.WithDescription("Number of reminders accepted by the scheduler."),
	); err != nil {
		return nil, err
	}
	if met.RemindersFired, err = m.Int64Counter("voxtask.reminders.fired",
		metric.WithDescription("Number of reminder triggers."),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("voxtask.utterance.duration",
		metric.WithDescription("Synthesis duration of spoken utterances."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(utteranceBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ActiveDialogues, err = m.Int64UpDownCounter("voxtask.dialogue.active",
		metric.WithDescription("Voice task-creation sessions currently in progress."),
	); err != nil {
		return nil, err
	}

	return met, nil
}
