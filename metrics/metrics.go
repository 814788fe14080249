// Package metrics exposes game and HTTP counters to Prometheus.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cubesweeper"

// Recorder implements service.Metrics on Prometheus collectors
type Recorder struct {
	SessionsCreated *prometheus.CounterVec
	SessionsDeleted prometheus.Counter
	Actions         *prometheus.CounterVec
	GamesFinished   *prometheus.CounterVec
	GameDuration    *prometheus.HistogramVec
	HTTPRequests    *prometheus.CounterVec

	reg prometheus.Registerer
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		SessionsCreated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_created_total",
				Help:      "Sessions created, by configuration",
			},
			[]string{"config"},
		),
		SessionsDeleted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sessions_deleted_total",
				Help:      "Sessions deleted through the API",
			},
		),
		Actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "actions_total",
				Help:      "Player actions, by action and result",
			},
			[]string{"action", "result"},
		),
		GamesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "games_finished_total",
				Help:      "Finished games, by configuration and outcome",
			},
			[]string{"config", "outcome"},
		),
		GameDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "game_duration_seconds",
				Help:      "Time from first reveal to the end of a game",
				Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
			},
			[]string{"outcome"},
		),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests, by route template, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		reg: reg,
	}

	reg.MustRegister(
		r.SessionsCreated,
		r.SessionsDeleted,
		r.Actions,
		r.GamesFinished,
		r.GameDuration,
		r.HTTPRequests,
	)
	return r
}

// TrackActiveSessions registers the sessions_active gauge. It is read from
// count at scrape time, so expiry, pruning and restored sessions all show up.
func (r *Recorder) TrackActiveSessions(count func() int) prometheus.GaugeFunc {
	g := prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory",
		},
		func() float64 { return float64(count()) },
	)
	r.reg.MustRegister(g)
	return g
}

// SessionCreated counts a new session
func (r *Recorder) SessionCreated(configID string) {
	r.SessionsCreated.WithLabelValues(configID).Inc()
}

// SessionDeleted counts a session removed through the API
func (r *Recorder) SessionDeleted() {
	r.SessionsDeleted.Inc()
}

// ActionPerformed counts a reveal, flag, chord or reset
func (r *Recorder) ActionPerformed(action string, success bool) {
	result := "ok"
	if !success {
		result = "rejected"
	}
	r.Actions.WithLabelValues(action, result).Inc()
}

// GameFinished counts a won or lost game and observes its duration
func (r *Recorder) GameFinished(configID string, won bool, elapsed time.Duration) {
	outcome := "lost"
	if won {
		outcome = "won"
	}
	r.GamesFinished.WithLabelValues(configID, outcome).Inc()
	r.GameDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// Middleware counts requests by their mux route template
func (r *Recorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, req)

		route := "unmatched"
		if current := mux.CurrentRoute(req); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		r.HTTPRequests.WithLabelValues(route, req.Method, strconv.Itoa(sw.status)).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack passes WebSocket upgrades through to the underlying writer
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
