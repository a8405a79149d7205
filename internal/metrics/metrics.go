// Package metrics exposes ledger state as Prometheus metrics.
package metrics

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/j-veylop/usage-ledger-tui/internal/logger"
	"github.com/j-veylop/usage-ledger-tui/internal/models"
)

var (
	// Account metrics
	AccountUsage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_account_usage_percent",
			Help: "Current usage of each account in percent of capacity",
		},
		[]string{"account"},
	)

	AccountRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_account_daily_rate",
			Help: "Estimated consumption in percentage points per day",
		},
		[]string{"account"},
	)

	AccountDaysRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_account_days_remaining",
			Help: "Days until the account is depleted at the current rate (+Inf when it never depletes)",
		},
		[]string{"account"},
	)

	AccountTimeBalance = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_account_time_balance",
			Help: "Normalized usage minus elapsed cycle percent",
		},
		[]string{"account"},
	)

	AccountNeedsAttention = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_account_needs_attention",
			Help: "1 when the account was reset and waits for a new reset date",
		},
		[]string{"account"},
	)

	// Score metrics
	Scores = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_score",
			Help: "Efficiency scores from 0 to 100",
		},
		[]string{"kind"},
	)

	RecommendedAccount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ult_recommended_account",
			Help: "Number of the account recommended for the next piece of work",
		},
	)

	Alerts = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ult_alerts",
			Help: "Number of active alerts by level",
		},
		[]string{"level"},
	)

	// History metrics
	HistorySamples = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ult_history_samples",
			Help: "Number of stored usage samples",
		},
	)

	// Operation metrics
	SavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ult_saves_total",
			Help: "Total saves by result",
		},
		[]string{"result"},
	)

	ResetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ult_automatic_resets_total",
			Help: "Total automatic account resets",
		},
	)

	ChangeEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ult_change_events_total",
			Help: "Total realtime change notifications received",
		},
		[]string{"table"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		AccountUsage,
		AccountRate,
		AccountDaysRemaining,
		AccountTimeBalance,
		AccountNeedsAttention,
		Scores,
		RecommendedAccount,
		Alerts,
		HistorySamples,
		SavesTotal,
		ResetsTotal,
		ChangeEventsTotal,
	)
}

// Observe updates the gauges from a state and the report built from it.
func Observe(st *models.State, r *models.Report) {
	for _, acc := range st.Accounts {
		label := strconv.Itoa(acc.ID)
		AccountUsage.WithLabelValues(label).Set(acc.Usage)
		attention := 0.0
		if acc.NeedsAttention {
			attention = 1
		}
		AccountNeedsAttention.WithLabelValues(label).Set(attention)
	}

	for _, p := range r.Projections {
		label := strconv.Itoa(p.AccountID)
		AccountRate.WithLabelValues(label).Set(p.Rate)
		AccountDaysRemaining.WithLabelValues(label).Set(p.DaysRemaining)
		AccountTimeBalance.WithLabelValues(label).Set(p.TimeBalance)
	}

	Scores.WithLabelValues("utilization").Set(float64(r.Scores.Utilization))
	Scores.WithLabelValues("balance").Set(float64(r.Scores.Balance))
	Scores.WithLabelValues("timing").Set(float64(r.Scores.Timing))
	Scores.WithLabelValues("efficiency").Set(float64(r.Scores.Efficiency))
	RecommendedAccount.Set(float64(r.Recommendation.AccountID))

	counts := map[models.Severity]int{}
	for _, a := range r.Alerts {
		counts[a.Level]++
	}
	for _, level := range []models.Severity{models.SeverityOK, models.SeverityInfo, models.SeverityWarning, models.SeverityDanger} {
		Alerts.WithLabelValues(string(level)).Set(float64(counts[level]))
	}

	HistorySamples.Set(float64(len(st.History)))
}

// RecordSave counts a save by outcome.
func RecordSave(err error) {
	if err != nil {
		SavesTotal.WithLabelValues("error").Inc()
		return
	}
	SavesTotal.WithLabelValues("ok").Inc()
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	listener net.Listener
}

// NewServer creates a new metrics server
func NewServer(addr string) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           Handler(),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Handler returns the mux serving /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	logger.Info("starting metrics server", "addr", ln.Addr().String())
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.server.Addr
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	logger.Info("stopping metrics server")
	return s.server.Close()
}
