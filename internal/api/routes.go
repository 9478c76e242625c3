package api

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"optionx/internal/api/handlers"
	"optionx/internal/api/middleware"
	"optionx/internal/facade"
	"optionx/internal/scheduler"
)

// Dependencies carries everything the diagnostics API reports on.
type Dependencies struct {
	Facade    *facade.Facade
	Scheduler *scheduler.Scheduler
}

// SetupRoutes wires the diagnostics HTTP surface. Adapted from teacher's
// internal/api/routes.go: same middleware chain and pprof/metrics/health
// scaffolding, with the arbitrage-domain CRUD endpoints replaced by
// read-only engine diagnostics (queue depth, scheduler tasks).
//
// Routes:
//
//	GET /api/v1/queue             - open/pending trade counts
//	GET /api/v1/scheduler/tasks   - registered scheduler task names
//	GET /health                   - liveness probe
//	GET /metrics                  - Prometheus exposition
//	GET /debug/pprof/*            - profiling (protected by DebugAuth)
//	GET /debug/runtime            - lightweight runtime stats
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	router.Use(middleware.Recovery)
	router.Use(middleware.Logging)
	router.Use(middleware.CORS)

	var f *facade.Facade
	var sched *scheduler.Scheduler
	if deps != nil {
		f = deps.Facade
		sched = deps.Scheduler
	}
	diag := handlers.NewDiagnosticsHandler(f, sched)

	apiV1 := router.PathPrefix("/api/v1").Subrouter()
	apiV1.HandleFunc("/queue", diag.GetQueueStatus).Methods("GET")
	apiV1.HandleFunc("/scheduler/tasks", diag.GetScheduledTasks).Methods("GET")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	debug := router.PathPrefix("/debug/pprof").Subrouter()
	debug.Use(middleware.DebugAuth)

	debug.HandleFunc("/", pprof.Index)
	debug.HandleFunc("/cmdline", pprof.Cmdline)
	debug.HandleFunc("/profile", pprof.Profile)
	debug.HandleFunc("/symbol", pprof.Symbol)
	debug.HandleFunc("/trace", pprof.Trace)
	debug.HandleFunc("/heap", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("heap").ServeHTTP(w, r)
	})
	debug.HandleFunc("/goroutine", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("goroutine").ServeHTTP(w, r)
	})
	debug.HandleFunc("/block", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("block").ServeHTTP(w, r)
	})
	debug.HandleFunc("/threadcreate", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("threadcreate").ServeHTTP(w, r)
	})
	debug.HandleFunc("/mutex", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("mutex").ServeHTTP(w, r)
	})
	debug.HandleFunc("/allocs", func(w http.ResponseWriter, r *http.Request) {
		pprof.Handler("allocs").ServeHTTP(w, r)
	})

	router.HandleFunc("/debug/runtime", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{`))
		w.Write([]byte(`"goroutines":` + itoa(runtime.NumGoroutine()) + `,`))
		w.Write([]byte(`"heap_alloc_mb":` + ftoa(float64(m.HeapAlloc)/1024/1024) + `,`))
		w.Write([]byte(`"heap_sys_mb":` + ftoa(float64(m.HeapSys)/1024/1024) + `,`))
		w.Write([]byte(`"num_gc":` + itoa(int(m.NumGC)) + `,`))
		w.Write([]byte(`"gc_pause_total_ms":` + ftoa(float64(m.PauseTotalNs)/1e6)))
		w.Write([]byte(`}`))
	}).Methods("GET")

	return router
}

// itoa/ftoa avoid pulling fmt/strconv into the hand-rolled runtime-stats
// JSON body, matching teacher's own choice here.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	pos := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		pos--
		b[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		b[pos] = '-'
	}
	return string(b[pos:])
}

func ftoa(f float64) string {
	i := int(f * 100)
	whole := i / 100
	frac := i % 100
	if frac < 0 {
		frac = -frac
	}
	fracStr := itoa(frac)
	if len(fracStr) == 1 {
		fracStr = "0" + fracStr
	}
	return itoa(whole) + "." + fracStr
}
