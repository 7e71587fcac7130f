package server

import (
	"encoding/json"
	"net/http"

	"github.com/ukydev/carmemo/internal/maintenance"
	"github.com/zoobzio/metricz"
)

var resolverCounters = []metricz.Key{
	maintenance.ResolverStoreHitsTotal,
	maintenance.ResolverGeneratedTotal,
	maintenance.ResolverFallbacksTotal,
	maintenance.ResolverStoreErrorsTotal,
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) metrics(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]interface{}, len(resolverCounters))
	for _, key := range resolverCounters {
		out[string(key)] = s.deps.Metrics.Counter(key).Value()
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
