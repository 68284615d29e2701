package core

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/quillmind-ai/quillmind/pkg/metrics"
	"github.com/quillmind-ai/quillmind/pkg/types"
)

type Metrics struct {
	apiResponseTime *prometheus.HistogramVec
	apiErrorCounter *prometheus.CounterVec

	ingestFiles    *prometheus.CounterVec
	ingestDuration *prometheus.HistogramVec
	embeddingTime  *prometheus.HistogramVec

	backupSnapshots   *prometheus.CounterVec
	backupLastSuccess *prometheus.GaugeVec
	backupRestores    *prometheus.CounterVec
}

func NewMetrics(ns, system string) *Metrics {
	// setup metric
	metrics.SetupMetricsManager(ns, system, prometheus.DefaultRegisterer.(*prometheus.Registry))

	m := &Metrics{
		apiResponseTime: metrics.NewHistogramVec("api_response_time", []string{"api"}),
		apiErrorCounter: metrics.NewCounterVec("api_error", []string{"method", "api", "status"}),

		ingestFiles:    metrics.NewCounterVec("ingest_files", []string{"result"}),
		ingestDuration: metrics.NewHistogramVec("ingest_file_duration", nil),
		embeddingTime:  metrics.NewHistogramVec("embedding_request_time", []string{"driver"}),

		backupSnapshots:   metrics.NewCounterVec("backup_snapshots", []string{"kind", "status"}),
		backupLastSuccess: metrics.NewGaugeVec("backup_last_success_time", []string{"kind"}),
		backupRestores:    metrics.NewCounterVec("backup_restores", []string{"kind"}),
	}

	return m
}

func (m *Metrics) ApiResponseTimer(api string) *prometheus.Timer {
	return prometheus.NewTimer(m.apiResponseTime.WithLabelValues(api))
}

func (m *Metrics) ApiErrorInc(method, api string, status int) {
	m.apiErrorCounter.WithLabelValues(method, api, strconv.Itoa(status)).Inc()
}

// IngestFileInc counts a file reaching a terminal pipeline state:
// processed, skipped or failed.
func (m *Metrics) IngestFileInc(result string) {
	m.ingestFiles.WithLabelValues(result).Inc()
}

func (m *Metrics) IngestDurationTimer() *prometheus.Timer {
	return prometheus.NewTimer(m.ingestDuration.WithLabelValues())
}

func (m *Metrics) EmbeddingTimer(driver string) *prometheus.Timer {
	return prometheus.NewTimer(m.embeddingTime.WithLabelValues(driver))
}

// SnapshotDone satisfies the backup coordinator's observer seam.
func (m *Metrics) SnapshotDone(kind types.BackupKind, err error) {
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.backupSnapshots.WithLabelValues(kind.String(), status).Inc()
	if err == nil {
		m.backupLastSuccess.WithLabelValues(kind.String()).Set(float64(time.Now().Unix()))
	}
}

func (m *Metrics) RestorePerformed(kind types.BackupKind) {
	m.backupRestores.WithLabelValues(kind.String()).Inc()
}
