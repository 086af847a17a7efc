package metrics

import (
	"strconv"

	"github.com/layer-3/questor/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements the Recorder interface with prometheus counters
type PrometheusRecorder struct {
	logins      *prometheus.CounterVec
	completions *prometheus.CounterVec
}

// NewPrometheusRecorder creates the counters and registers them with reg
func NewPrometheusRecorder(reg prometheus.Registerer) ports.Recorder {
	r := &PrometheusRecorder{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "questor",
			Name:      "logins_total",
			Help:      "Wallet login attempts by result.",
		}, []string{"result"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "questor",
			Name:      "completions_total",
			Help:      "Quest completion requests by result and evidence trust flag.",
		}, []string{"result", "verified"}),
	}
	reg.MustRegister(r.logins, r.completions)
	return r
}

// RecordLogin counts a login attempt
func (r *PrometheusRecorder) RecordLogin(result string) {
	r.logins.WithLabelValues(result).Inc()
}

// RecordCompletion counts a completion request
func (r *PrometheusRecorder) RecordCompletion(result string, verified bool) {
	r.completions.WithLabelValues(result, strconv.FormatBool(verified)).Inc()
}

// NopRecorder discards all measurements
type NopRecorder struct{}

func (NopRecorder) RecordLogin(string) {}
func (NopRecorder) RecordCompletion(string, bool) {}
