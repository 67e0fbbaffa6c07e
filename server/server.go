package server

import (
	"context"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/dashboard"
	"github.com/urfave/negroni"
)

// Dashboard is the report source behind the API
type Dashboard interface {
	Report() (aggregate.Report, error)
	Daily(days int, reference time.Time) ([]aggregate.DayCount, error)
	Summary() aggregate.Summary
	Refresh(ctx context.Context, trigger string) error
	Settings() dashboard.Settings
}

// ReportCache holds the last report published by any dashboard instance
type ReportCache interface {
	GetReport() (aggregate.Report, error)
}

// Service exposes the dashboard over http
type Service struct {
	dashboard Dashboard
	cache     ReportCache
	events    http.Handler
	router    *mux.Router
	jwtSecret string
	logger    *logrus.Entry
	server    *http.Server
}

// NewService creates the http API. cache may be nil, in which case reports
// are served from memory only.
func NewService(d Dashboard, cache ReportCache, events http.Handler, jwtSecret string, logger *logrus.Entry) *Service {
	svc := &Service{
		dashboard: d,
		cache:     cache,
		events:    events,
		router:    mux.NewRouter().StrictSlash(true),
		jwtSecret: jwtSecret,
		logger:    logger,
	}
	svc.routes()
	return svc
}

// Handler returns the router wrapped with CORS and access logging
func (svc *Service) Handler() http.Handler {
	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	})
	handler := c.Handler(svc.router)

	// capture http related metrics
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(handler, w, r)
		svc.logger.Infof("%s %s (code=%d dt=%s)",
			r.Method,
			r.URL,
			m.Code,
			m.Duration,
		)
	})
}

// Listen opens up the http port for the REST API. It returns
// http.ErrServerClosed after Shutdown.
func (svc *Service) Listen(port string) error {
	svc.logger.WithFields(logrus.Fields{
		"port": port,
	}).Info("The API http server starts listening")
	svc.server = &http.Server{
		Addr:              port,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return svc.server.ListenAndServe()
}

// Shutdown stops accepting connections and waits for in-flight requests
func (svc *Service) Shutdown(ctx context.Context) error {
	if svc.server == nil {
		return nil
	}
	return svc.server.Shutdown(ctx)
}

func (svc *Service) routes() {
	// Endpoints that are public accessible
	svc.router.Handle("/api/v1/dashboard/events", svc.events).Methods("GET")
	svc.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	svc.router.HandleFunc("/healthz", svc.handleHealth()).Methods("GET")

	// Endpoints that require an admin token
	protected := mux.NewRouter().StrictSlash(true)
	d := protected.PathPrefix("/api/v1/dashboard").Subrouter()
	d.HandleFunc("/report", svc.handleGetReport()).Methods("GET")
	d.HandleFunc("/daily", svc.handleGetDaily()).Methods("GET")
	d.HandleFunc("/summary", svc.handleGetSummary()).Methods("GET")
	d.HandleFunc("/refresh", svc.handleRefresh()).Methods("POST")

	auth := svc.authMiddleware()
	svc.router.PathPrefix("/api/v1/dashboard").Handler(negroni.New(
		negroni.HandlerFunc(auth.HandlerWithNext),
		negroni.Wrap(protected),
	))
}
