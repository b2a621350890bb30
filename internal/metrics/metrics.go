package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AggregationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fobimap_aggregations_total",
		Help: "Total number of grid aggregation passes computed",
	})
	AggregationsSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fobimap_aggregations_skipped_total",
		Help: "Aggregation requests skipped because zoom bucket, bbox and point count were unchanged",
	})
	AggregationsStaleTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fobimap_aggregations_stale_total",
		Help: "Aggregation results discarded because a newer request superseded them",
	})
	AggregationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fobimap_aggregation_failures_total",
		Help: "Aggregation passes that failed; the previous grid was kept",
	})
	AggregationDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fobimap_aggregation_duration_ms",
		Help:    "Grid aggregation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	GridCellsEmitted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fobimap_grid_cells",
		Help:    "Number of grid cells per aggregation pass",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000},
	})
	DrilldownFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fobimap_drilldown_fetch_total",
		Help: "Drill-down record fetches by outcome",
	}, []string{"outcome"})
	CacheRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fobimap_cache_requests_total",
		Help: "Cache lookups by backend and result",
	}, []string{"backend", "result"})
	MarkersFetchDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fobimap_markers_fetch_duration_ms",
		Help:    "Marker fetch duration in milliseconds by backend",
		Buckets: []float64{5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"backend"})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fobimap_active_sessions",
		Help: "Number of live interactive map sessions",
	})
)

func init() {
	prometheus.MustRegister(AggregationsTotal)
	prometheus.MustRegister(AggregationsSkippedTotal)
	prometheus.MustRegister(AggregationsStaleTotal)
	prometheus.MustRegister(AggregationFailuresTotal)
	prometheus.MustRegister(AggregationDurationMs)
	prometheus.MustRegister(GridCellsEmitted)
	prometheus.MustRegister(DrilldownFetchTotal)
	prometheus.MustRegister(CacheRequestsTotal)
	prometheus.MustRegister(MarkersFetchDurationMs)
	prometheus.MustRegister(ActiveSessions)
}

// Handler Prometheus の /metrics ハンドラーを返す
func Handler() http.Handler { return promhttp.Handler() }
