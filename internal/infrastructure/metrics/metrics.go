package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors shared by the server, services and repositories.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	RequestsTotal       *prometheus.CounterVec
	RequestDuration     *prometheus.HistogramVec
	TodosCreated        prometheus.Counter
	CreateCompensations *prometheus.CounterVec
	CategorySeeds       prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		TodosCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "todos_created_total",
			Help: "Todos successfully created",
		}),
		CreateCompensations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "todo_create_compensations_total",
				Help: "Compensating deletes run after a failed category association insert",
			},
			[]string{"result"},
		),
		CategorySeeds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "category_seed_total",
			Help: "Users that received the default category set",
		}),
	}

	reg.MustRegister(m.RequestsTotal, m.RequestDuration, m.TodosCreated, m.CreateCompensations, m.CategorySeeds)
	return m
}

func (m *Metrics) TodoCreated() {
	if m == nil {
		return
	}
	m.TodosCreated.Inc()
}

// Compensated records a compensating delete; result is "ok" or "failed"
func (m *Metrics) Compensated(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	m.CreateCompensations.WithLabelValues(result).Inc()
}

func (m *Metrics) CategoriesSeeded() {
	if m == nil {
		return
	}
	m.CategorySeeds.Inc()
}
