package completer

import (
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/metrics"
	pkgmw "github.com/Adithya-Monish-Kumar-K/keyword-index/pkg/middleware"
)

// NewRouter builds the completer HTTP handler.
//
// Route table:
//
//	GET    /api/v1/complete           → completion candidates
//	GET    /api/v1/indexes            → persisted indexes
//	GET    /api/v1/cache/stats        → loader statistics
//	POST   /api/v1/cache/invalidate   → drop one or all loaded indexes
//	POST   /api/v1/reindex            → publish a reindex request
//	GET    /health/live               → liveness
//	GET    /health/ready              → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → Metrics → Timeout → handler
func NewRouter(h *Handler, checker *health.Checker, m *metrics.Metrics, timeout time.Duration) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	mux.HandleFunc("GET /api/v1/complete", h.Complete)
	mux.HandleFunc("GET /api/v1/indexes", h.Indexes)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("POST /api/v1/reindex", h.Reindex)

	var chain http.Handler = mux
	if timeout > 0 {
		chain = pkgmw.Timeout(timeout)(chain)
	}
	if m != nil {
		chain = pkgmw.Metrics(m)(chain)
	}
	chain = pkgmw.CORS(pkgmw.DefaultCORSConfig())(chain)
	chain = pkgmw.RequestID(chain)

	return chain
}
