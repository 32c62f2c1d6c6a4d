package rpc

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	callsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corelink",
		Subsystem: "rpc",
		Name:      "calls_total",
		Help:      "Requests issued by the requesting core, by opcode and result.",
	}, []string{"kind", "code"})

	callSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "corelink",
		Subsystem: "rpc",
		Name:      "call_seconds",
		Help:      "Round trip time of a request, including waiting for the call permit.",
		Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
	}, []string{"kind"})

	dispatchedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "corelink",
		Subsystem: "rpc",
		Name:      "dispatched_total",
		Help:      "Requests applied by the owning core, by opcode and result.",
	}, []string{"kind", "code"})
)

// RegisterMetrics registers the protocol collectors.
func RegisterMetrics(r prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{callsTotal, callSeconds, dispatchedTotal} {
		if err := r.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func resultLabel(err error) string {
	if code, ok := err.(Code); ok || err == nil {
		return code.String()
	}
	if err == ErrClientClosed {
		return "closed"
	}
	return "canceled"
}
