package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CandleFetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "candle_fetches_total", Help: "Candle refresh attempts by outcome"},
		[]string{"asset", "outcome"},
	)
	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "classifications_total", Help: "Oracle classifications by outcome"},
		[]string{"asset", "outcome"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Trading signals emitted"},
		[]string{"asset", "side"},
	)
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trades_total", Help: "Simulated trades executed"},
		[]string{"asset", "side"},
	)
)

func init() {
	prometheus.MustRegister(CandleFetchesTotal, ClassificationsTotal, SignalsTotal, TradesTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
