package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Metrics holds the bot's prometheus collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry    *prometheus.Registry
	moduleLoads *prometheus.CounterVec
	commands    *prometheus.CounterVec
	queries     *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		moduleLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kasutamaiza_module_loads_total",
			Help: "Command module load attempts by outcome.",
		}, []string{"outcome"}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kasutamaiza_commands_total",
			Help: "Command invocations by command and status.",
		}, []string{"command", "status"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kasutamaiza_db_queries_total",
			Help: "Database operations by operation and status.",
		}, []string{"op", "status"}),
	}
	reg.MustRegister(
		m.moduleLoads,
		m.commands,
		m.queries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ModuleLoad(outcome string) {
	if m == nil {
		return
	}
	m.moduleLoads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Command(name string, err error) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, status(err)).Inc()
}

func (m *Metrics) Query(op string, err error) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(op, status(err)).Inc()
}

// Registry exposes the underlying registry, mainly for tests
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Server serves /metrics until Stop is called
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// Serve starts the metrics endpoint in the background
func (m *Metrics) Serve(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	s := &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: logger.With().Str("component", "metrics").Logger(),
	}

	go func() {
		s.log.Info().Str("addr", addr).Msg("Metrics endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error().Err(err).Msg("Metrics endpoint stopped")
		}
	}()
	return s
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
