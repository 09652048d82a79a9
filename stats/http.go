package stats

import (
	"net/http"
	_ "net/http/pprof"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/osmada/osmada/log"
)

// StartHttpPProf serves the pprof handlers and the metrics of s on bind in
// the background.
func StartHttpPProf(bind string, s *Stats) {
	go func() {
		log.Println("[error] pprof server:", http.ListenAndServe(bind, s.handler()))
	}()
}

func (s *Stats) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.Registry(), promhttp.HandlerOpts{}))
	// pprof registers on the default mux
	mux.Handle("/debug/pprof/", http.DefaultServeMux)
	return mux
}
