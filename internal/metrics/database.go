package metrics

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Database metrics
var (
	// DBConnectionsOpen is the total number of open connections to the database
	DBConnectionsOpen = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_open",
			Help:      "Total number of open database connections",
		},
	)

	// DBConnectionsInUse is the number of database connections currently in use
	DBConnectionsInUse = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_in_use",
			Help:      "Number of database connections currently in use (acquired)",
		},
	)

	// DBConnectionsIdle is the number of idle database connections
	DBConnectionsIdle = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_idle",
			Help:      "Number of idle database connections",
		},
	)

	// DBConnectionsMaxOpen is the maximum number of open database connections
	DBConnectionsMaxOpen = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_max_open",
			Help:      "Maximum number of open database connections allowed",
		},
	)

	// DBQueryDuration records database query latency
	DBQueryDuration = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "db_query_duration_seconds",
			Help:      "Database query duration in seconds",
			// Buckets: 1ms, 5ms, 10ms, 25ms, 50ms, 100ms, 250ms, 500ms, 1s, 2.5s, 5s
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	// DBErrors counts database errors by type
	DBErrors = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_errors_total",
			Help:      "Total number of database errors",
		},
		[]string{"operation", "error_type"},
	)
)

// PoolStats is a point-in-time view of a connection pool.
type PoolStats struct {
	Open    int
	InUse   int
	Idle    int
	MaxOpen int
}

// DBCollector periodically publishes connection pool statistics.
type DBCollector struct {
	stats    func() PoolStats
	stopChan chan struct{}
}

// NewPgxCollector collects from a pgx pool.
func NewPgxCollector(pool *pgxpool.Pool) *DBCollector {
	return &DBCollector{
		stats: func() PoolStats {
			stat := pool.Stat()
			return PoolStats{
				Open:    int(stat.TotalConns()),
				InUse:   int(stat.AcquiredConns()),
				Idle:    int(stat.IdleConns()),
				MaxOpen: int(stat.MaxConns()),
			}
		},
		stopChan: make(chan struct{}),
	}
}

// NewSQLCollector collects from a database/sql handle.
func NewSQLCollector(db *sql.DB) *DBCollector {
	return &DBCollector{
		stats: func() PoolStats {
			stat := db.Stats()
			return PoolStats{
				Open:    stat.OpenConnections,
				InUse:   stat.InUse,
				Idle:    stat.Idle,
				MaxOpen: stat.MaxOpenConnections,
			}
		},
		stopChan: make(chan struct{}),
	}
}

// Start collects immediately and then every interval until ctx ends or Stop.
func (c *DBCollector) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (c *DBCollector) Stop() {
	close(c.stopChan)
}

func (c *DBCollector) collect() {
	if c.stats == nil {
		return
	}
	stat := c.stats()
	DBConnectionsOpen.Set(float64(stat.Open))
	DBConnectionsInUse.Set(float64(stat.InUse))
	DBConnectionsIdle.Set(float64(stat.Idle))
	DBConnectionsMaxOpen.Set(float64(stat.MaxOpen))
}

// RecordQuery records the duration and outcome of one storage operation:
//
//	start := time.Now()
//	defer func() { metrics.RecordQuery("register", start, err) }()
func RecordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	DBQueryDuration.WithLabelValues(operation).Observe(duration)

	if err != nil {
		errorType := "query_error"
		switch {
		case errors.Is(err, context.Canceled):
			errorType = "canceled"
		case errors.Is(err, context.DeadlineExceeded):
			errorType = "timeout"
		}
		DBErrors.WithLabelValues(operation, errorType).Inc()
	}
}
