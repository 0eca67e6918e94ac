package endpoints

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/gantrylabs/gantry/common/stats"
	"github.com/gantrylabs/gantry/worker"
)

// AdminServer serves the HTTP admin surface: a health check, the stats
// registry rendered as JSON, and job status listings.
type AdminServer struct {
	Addr string
	Stat stats.StatsReceiver
	mux  *http.ServeMux
}

func NewAdminServer(addr string, stat stats.StatsReceiver) *AdminServer {
	if stat == nil {
		stat = stats.NilStatsReceiver()
	}
	s := &AdminServer{Addr: addr, Stat: stat, mux: http.NewServeMux()}
	s.mux.HandleFunc("/", helpHandler)
	s.mux.HandleFunc("/health", healthHandler)
	s.mux.HandleFunc("/admin/metrics.json", s.statsHandler)
	return s
}

// AddJobStatuses registers /jobs, serving one status line per tracked
// job, or a single job's status with ?id=.
func (s *AdminServer) AddJobStatuses(q worker.StatusQuerier) {
	s.mux.Handle("/jobs", &statusHandler{q: q})
}

// Handler returns the admin mux.
func (s *AdminServer) Handler() http.Handler {
	return s.mux
}

// Serve starts uptime reporting and blocks serving HTTP.
func (s *AdminServer) Serve() error {
	started := time.Now()
	s.Stat.Gauge(stats.ServerStartedGauge).Update(1)
	go func() {
		for {
			s.Stat.Gauge(stats.UptimeGauge_ms).Update(int64(time.Since(started) / time.Millisecond))
			time.Sleep(time.Second)
		}
	}()
	log.Infof("Serving http & stats on %s", s.Addr)
	return http.ListenAndServe(s.Addr, s.mux)
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "Common paths: '/health', '/admin/metrics.json', '/jobs'", 501)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "ok")
}

func (s *AdminServer) statsHandler(w http.ResponseWriter, r *http.Request) {
	const contentTypeHdr = "Content-Type"
	const contentTypeVal = "application/json; charset=utf-8"
	w.Header().Set(contentTypeHdr, contentTypeVal)

	pretty := r.URL.Query().Get("pretty") == "true"
	str := s.Stat.Render(pretty)
	if _, err := io.Copy(w, bytes.NewBuffer(str)); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
}

type statusHandler struct {
	q worker.StatusQuerier
}

func (h *statusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("id"); id != "" {
		st, err := worker.StatusNow(h.q, id)
		if err != nil {
			http.Error(w, err.Error(), 404)
			return
		}
		fmt.Fprintln(w, st.String())
		return
	}
	statuses, err := h.q.QueryNow(worker.Query{AllRuns: true, States: worker.ALL_MASK})
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	for _, st := range statuses {
		fmt.Fprintln(w, st.String())
	}
}

type StatScope string

// MakeStatsReceiver builds the receiver an admin server renders: a
// percentile registry captured every 15s.
func MakeStatsReceiver(scope StatScope) stats.StatsReceiver {
	s, _ := stats.NewCustomStatsReceiver(
		stats.NewPercentileStatsRegistry,
		15*time.Second)
	return s.Scope(string(scope))
}
