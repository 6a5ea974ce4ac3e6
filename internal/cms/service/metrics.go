package service

import (
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Laisky/institute-cms/internal/cms/model"
)

// Metrics counts store operations.
type Metrics struct {
	OperationTotal     *prometheus.CounterVec
	OperationDuration  *prometheus.HistogramVec
	ValidationWarnings prometheus.Counter
}

// NewMetrics creates the store metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		OperationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cms",
			Name:      "store_operations_total",
			Help:      "Total number of content store operations",
		}, []string{"operation", "status"}),
		OperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cms",
			Name:      "store_operation_duration_seconds",
			Help:      "Content store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ValidationWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "cms",
			Name:      "content_validation_warnings_total",
			Help:      "Total number of validation warnings raised by saves",
		}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.OperationTotal, m.OperationDuration, m.ValidationWarnings} {
			if err := reg.Register(c); err != nil {
				return nil, errors.Wrap(err, "register metric")
			}
		}
	}

	return m, nil
}

// operationStatus labels an outcome by error kind.
func operationStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if typed, ok := model.AsError(err); ok {
		return string(typed.Code)
	}
	return "error"
}

func (m *Metrics) observe(op string, start time.Time, err error) {
	if m == nil {
		return
	}

	m.OperationTotal.WithLabelValues(op, operationStatus(err)).Inc()
	m.OperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) validationWarnings(n int) {
	if m == nil {
		return
	}

	m.ValidationWarnings.Add(float64(n))
}
