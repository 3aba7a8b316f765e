package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/upb/tron-node-provider/app"
	"github.com/upb/tron-node-provider/handlers"
	"github.com/upb/tron-node-provider/middleware"
	"github.com/upb/tron-node-provider/services/providers"
	"github.com/upb/tron-node-provider/utils"
)

// requestTimeoutSlack leaves room to answer after a node call times out.
const requestTimeoutSlack = 5 * time.Second

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	nodeTimeout := deps.Config.Nodes.Timeout
	if nodeTimeout <= 0 {
		nodeTimeout = providers.DefaultTimeout
	}

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(nodeTimeout + requestTimeoutSlack))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(deps.Nodes, deps.Logger)
	nodes := handlers.NewNodeHandler(deps.Nodes, deps.Logger)

	// Health check endpoints
	r.Get("/healthz", health.HandleHealth)
	r.Get("/readyz", health.HandleReadiness)

	if deps.MetricsRegistry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", handlers.StatusHandler(deps.Nodes, deps.Config.Environment))

		// Forward to an explicit node
		r.HandleFunc("/node/{role}/*", nodes.HandleNodeRequest)

		// Forward to the node that serves the path
		r.HandleFunc("/route/*", nodes.HandleRoutedRequest)
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// MetricsHandler serves the Prometheus registry on its own listener, or
// nil when metrics are disabled.
func MetricsHandler(deps *app.Dependencies) http.Handler {
	if deps.MetricsRegistry == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(deps.MetricsRegistry, promhttp.HandlerOpts{}))
	return mux
}
