package telemetry

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arthaus/editions/common/logger"
)

// Telemetry holds observability components
type Telemetry struct {
	log         *logger.Logger
	pprofAddr   string
	metricsAddr string
	enablePprof bool
	registry    *prometheus.Registry

	ReconcilesTotal         *prometheus.CounterVec
	ReconcileDuration       prometheus.Histogram
	CertificatesIssuedTotal prometheus.Counter
	RankChangesTotal        prometheus.Counter
	EditionOversellTotal    prometheus.Counter
	OwnershipTransfersTotal prometheus.Counter
}

// New creates telemetry components and registers collectors
func New(pprofPort, metricsPort int, enablePprof bool, log *logger.Logger) *Telemetry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	t := &Telemetry{
		log:         log,
		pprofAddr:   fmt.Sprintf("localhost:%d", pprofPort),
		metricsAddr: fmt.Sprintf(":%d", metricsPort),
		enablePprof: enablePprof,
		registry:    registry,

		ReconcilesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "editions_reconciles_total",
			Help: "Reconciliation runs by outcome.",
		}, []string{"outcome"}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "editions_reconcile_duration_seconds",
			Help:    "Wall time of one edition reconciliation.",
			Buckets: prometheus.DefBuckets,
		}),
		CertificatesIssuedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editions_certificates_issued_total",
			Help: "Certificates issued (first issuance only).",
		}),
		RankChangesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editions_rank_changes_total",
			Help: "Unit rows whose rank or status changed during reconciliation.",
		}),
		EditionOversellTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editions_oversell_total",
			Help: "Reconciliations that left more active units than the configured edition size.",
		}),
		OwnershipTransfersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "editions_ownership_transfers_total",
			Help: "Completed ownership transfers.",
		}),
	}

	registry.MustRegister(
		t.ReconcilesTotal,
		t.ReconcileDuration,
		t.CertificatesIssuedTotal,
		t.RankChangesTotal,
		t.EditionOversellTotal,
		t.OwnershipTransfersTotal,
	)

	return t
}

// Start starts telemetry endpoints
func (t *Telemetry) Start(ctx context.Context) error {
	if t.enablePprof {
		go func() {
			t.log.Info("pprof server starting", "addr", t.pprofAddr)
			if err := http.ListenAndServe(t.pprofAddr, nil); err != nil {
				t.log.Error("pprof server error", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))

	go func() {
		t.log.Info("metrics server starting", "addr", t.metricsAddr)
		if err := http.ListenAndServe(t.metricsAddr, mux); err != nil {
			t.log.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// RecordDuration records operation duration
func (t *Telemetry) RecordDuration(operation string, start time.Time) {
	duration := time.Since(start)
	t.log.Debug("operation completed",
		"operation", operation,
		"duration_ms", duration.Milliseconds(),
	)
}
