package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuecall_commands_total",
			Help: "Total dispatched commands by operation and outcome",
		},
		[]string{"op", "outcome"},
	)

	DispatchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cuecall_dispatch_duration_seconds",
			Help:    "Duration of command dispatch including store writes",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.2, 0.5, 1.0},
		},
	)

	ResyncsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuecall_resyncs_total",
			Help: "Total display-client resync attempts by outcome",
		},
		[]string{"outcome"},
	)

	WireDatagramsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cuecall_wire_datagrams_total",
			Help: "Total UDP datagrams received by outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(DispatchDuration)
	prometheus.MustRegister(ResyncsTotal)
	prometheus.MustRegister(WireDatagramsTotal)
}
