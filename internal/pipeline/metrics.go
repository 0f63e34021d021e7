package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ironsheep/docscan/internal/ocr"
)

// Stage names used as metric labels.
const (
	StageLocate    = "locate"
	StageRectify   = "rectify"
	StageNormalize = "normalize"
	StageOCR       = "ocr"
)

// Metrics records pipeline counters and timings. A nil *Metrics records
// nothing.
type Metrics struct {
	documents  *prometheus.CounterVec
	ocr        *prometheus.CounterVec
	stage      *prometheus.HistogramVec
	textLength prometheus.Histogram
}

// NewMetrics creates the pipeline metrics and registers them with reg.
// A nil reg creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		documents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscan_documents_total",
				Help: "Total number of preprocessed photos by outcome",
			},
			[]string{"outcome"}, // rectified, no_document, geometry_fallback
		),
		ocr: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docscan_ocr_total",
				Help: "Total number of text recognition calls by status",
			},
			[]string{"status"}, // ok, no_text, failed
		),
		stage: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "docscan_stage_duration_seconds",
				Help:    "Pipeline stage duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"stage"},
		),
		textLength: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "docscan_text_length_chars",
				Help:    "Length of recognized text in characters",
				Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000, 50000},
			},
		),
	}
}

func (m *Metrics) observeStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stage.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

func (m *Metrics) countDocument(outcome Outcome) {
	if m == nil {
		return
	}
	m.documents.WithLabelValues(string(outcome)).Inc()
}

func (m *Metrics) countOCR(res ocr.Result) {
	if m == nil {
		return
	}
	m.ocr.WithLabelValues(string(res.Status)).Inc()
	if res.Status != ocr.StatusFailed {
		m.textLength.Observe(float64(len([]rune(res.Text))))
	}
}
