package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Sessions(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.SessionCreated("expert-3d")
	r.SessionCreated("expert-3d")
	r.SessionCreated("beginner-2d")
	r.SessionDeleted()

	assert.Equal(t, 2.0, testutil.ToFloat64(r.SessionsCreated.WithLabelValues("expert-3d")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsCreated.WithLabelValues("beginner-2d")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.SessionsDeleted))
}

func TestRecorder_ActiveSessionsFollowCount(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	active := 3
	gauge := r.TrackActiveSessions(func() int { return active })
	assert.Equal(t, 3.0, testutil.ToFloat64(gauge))

	// Sessions leaving without SessionDeleted, e.g. expiry, still show up.
	active = 1
	r.SessionCreated("beginner-3d")
	expected := `
# HELP cubesweeper_sessions_active Sessions currently held in memory
# TYPE cubesweeper_sessions_active gauge
cubesweeper_sessions_active 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cubesweeper_sessions_active"))
}

func TestRecorder_Actions(t *testing.T) {
	r := New(prometheus.NewRegistry())

	r.ActionPerformed("reveal", true)
	r.ActionPerformed("reveal", false)
	r.ActionPerformed("reveal", true)
	r.ActionPerformed("flag", true)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Actions.WithLabelValues("reveal", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Actions.WithLabelValues("reveal", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Actions.WithLabelValues("flag", "ok")))
}

func TestRecorder_GameFinished(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg)

	r.GameFinished("beginner-3d", true, 12*time.Second)
	r.GameFinished("beginner-3d", false, 2*time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.GamesFinished.WithLabelValues("beginner-3d", "won")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.GamesFinished.WithLabelValues("beginner-3d", "lost")))

	expected := `
# HELP cubesweeper_games_finished_total Finished games, by configuration and outcome
# TYPE cubesweeper_games_finished_total counter
cubesweeper_games_finished_total{config="beginner-3d",outcome="lost"} 1
cubesweeper_games_finished_total{config="beginner-3d",outcome="won"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cubesweeper_games_finished_total"))
	assert.Equal(t, 2, testutil.CollectAndCount(r.GameDuration))
}

func TestRecorder_DoubleRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	assert.Panics(t, func() { New(reg) })
}

func TestRecorder_Middleware(t *testing.T) {
	r := New(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(r.Middleware)
	router.HandleFunc("/api/sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods("GET")
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})

	for _, path := range []string{"/api/sessions/ab12", "/api/sessions/cd34", "/healthz"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("/api/sessions/{id}", "GET", "404")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.HTTPRequests.WithLabelValues("/healthz", "GET", "200")))
}
