package app

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/NescAdmin/nesc-planering/internal/config"
	"github.com/NescAdmin/nesc-planering/pkg/company"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planering_http_requests_total",
		Help: "HTTP requests by method, route template and status class.",
	}, []string{"method", "route", "status"})
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "planering_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route template.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// SetupMiddleware wires the global middleware and returns the server handler.
// CORS wraps the router from the outside so preflight requests are answered
// even for paths mux would not match; company resolution is scoped to the
// /api subrouter in RegisterRoutes.
func SetupMiddleware(r *mux.Router, cfg config.Application) http.Handler {
	r.Use(metricsMiddleware)
	return corsMiddleware(cfg.Host)(r)
}

func corsMiddleware(origin string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Company-Id")
			if req.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

// companyMiddleware resolves the X-Company-Id header into the request
// context. Every company-scoped route answers 401 without a resolvable
// company.
func companyMiddleware(companies company.Service) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			companyId := req.Header.Get("X-Company-Id")
			if companyId == "" {
				http.Error(w, "missing X-Company-Id header", http.StatusUnauthorized)
				return
			}
			c, err := companies.Get(req.Context(), companyId)
			if err != nil {
				if errors.Is(err, company.ErrCompanyNotFound) {
					log.Debugf("unknown company: %s", companyId)
					http.Error(w, "unknown company", http.StatusUnauthorized)
					return
				}
				log.Errorf("failed to resolve company: %v", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, req.WithContext(company.WithCompany(req.Context(), c)))
		})
	}
}

// statusRecorder captures the response code for the metrics labels.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)

		route := req.URL.Path
		if current := mux.CurrentRoute(req); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		httpRequestsTotal.WithLabelValues(req.Method, route, statusClass(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(req.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}
