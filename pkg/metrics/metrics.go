// Package metrics keeps prometheus metrics of batch runs. Runs are short-lived cli processes,
// so metrics are pushed to a Pushgateway at the end of a run grouped by the command name.
// The server exposes the same metrics on its own endpoint.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/yitzyh/shtell/pkg/domain"
	"github.com/yitzyh/shtell/pkg/store"
)

const namespace = "shtell"

// Recorder collects metrics of runs in its own registry
type Recorder struct {
	registry *prometheus.Registry

	runs        *prometheus.CounterVec
	decisions   *prometheus.GaugeVec
	categories  *prometheus.GaugeVec
	skipped     prometheus.Gauge
	written     prometheus.Gauge
	failed      prometheus.Gauge
	duration    prometheus.Gauge
	lastSuccess prometheus.Gauge
	records     *prometheus.GaugeVec
}

// New makes Recorder with all metrics registered
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_total", Help: "Number of batch runs",
		}, []string{"mode", "result"}),
		decisions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_decisions", Help: "Decisions of the last run per action",
		}, []string{"action"}),
		categories: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_categories", Help: "Records of the last run per target category",
		}, []string{"category"}),
		skipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_skipped", Help: "Records skipped by the last run",
		}),
		written: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_written", Help: "Records written by the last run",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_failed", Help: "Records failed to write by the last run",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_duration_seconds", Help: "Duration of the last run",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "run_last_success_timestamp_seconds", Help: "Time of the last successful run",
		}),
		records: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "records", Help: "Stored records per category and status",
		}, []string{"category", "status"}),
	}
	r.registry.MustRegister(r.runs, r.decisions, r.categories, r.skipped, r.written, r.failed,
		r.duration, r.lastSuccess, r.records)
	return r
}

// Registry returns the registry of the recorder
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler returns http handler serving the metrics
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveChangeSet sets per action and per category gauges from the stats of a change-set
func (r *Recorder) ObserveChangeSet(cs domain.ChangeSet) {
	for _, a := range domain.Actions {
		r.decisions.WithLabelValues(string(a)).Set(float64(cs.Stats.PerAction[a]))
	}
	r.categories.Reset()
	for cat, n := range cs.Stats.PerCategory {
		if cat == "" {
			cat = "uncategorized"
		}
		r.categories.WithLabelValues(cat).Add(float64(n))
	}
	r.skipped.Set(float64(cs.Stats.Skipped))
}

// ObserveWrite sets written and failed counts of the last run
func (r *Recorder) ObserveWrite(written, failed int) {
	r.written.Set(float64(written))
	r.failed.Set(float64(failed))
}

// ObserveRun counts a finished run and sets its duration
func (r *Recorder) ObserveRun(apply bool, duration time.Duration, err error) {
	mode, result := "dry-run", "success"
	if apply {
		mode = "apply"
	}
	if err != nil {
		result = "error"
	}
	r.runs.WithLabelValues(mode, result).Inc()
	r.duration.Set(duration.Seconds())
	if err == nil {
		r.lastSuccess.SetToCurrentTime()
	}
}

// ObserveSummary replaces the stored records gauges with the counts of a status summary
func (r *Recorder) ObserveSummary(counts []store.StatusCount) {
	r.records.Reset()
	for _, c := range counts {
		r.records.WithLabelValues(c.Category, string(c.Status)).Set(float64(c.Count))
	}
}

// Push sends all metrics to the Pushgateway at url, grouped by job and command.
// Empty url disables push.
func (r *Recorder) Push(ctx context.Context, url, job, command string) error {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	p := push.New(url, job).Gatherer(r.registry)
	if command != "" {
		p = p.Grouping("command", command)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}
