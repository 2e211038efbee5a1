package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/healchain/healchain-backend/internal/backend/api/handlers"
	"github.com/healchain/healchain-backend/internal/backend/metrics"
	"github.com/healchain/healchain-backend/pkg/logging"
)

type Server struct {
	router     *mux.Router
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(handler *handlers.Handler, collector *metrics.Collector, port string, logger logging.Logger) *Server {
	router := mux.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "Accept", "Origin", "X-Requested-With"},
		AllowCredentials: false,
	})

	s := &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: corsHandler.Handler(router),
		},
	}

	s.routes(handler, collector)
	return s
}

func (s *Server) routes(handler *handlers.Handler, collector *metrics.Collector) {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(mux.CORSMethodMiddleware(api))

	api.HandleFunc("/tasks/admit", handler.AdmitTask).Methods("POST")
	api.HandleFunc("/tasks/{id}", handler.GetTask).Methods("GET")

	api.HandleFunc("/tasks/{id}/miners", handler.RegisterMiner).Methods("POST")
	api.HandleFunc("/tasks/{id}/miners/{address}/proof", handler.VerifyMinerProof).Methods("POST")

	api.HandleFunc("/tasks/{id}/selection", handler.TriggerSelection).Methods("POST")

	api.HandleFunc("/tasks/{id}/reveal-open", handler.OpenReveal).Methods("POST")
	api.HandleFunc("/tasks/{id}/reveal", handler.CloseReveal).Methods("POST")

	api.HandleFunc("/tasks/{id}/key", handler.GetDeliveredKey).Methods("GET")
	api.HandleFunc("/tasks/{id}/key-metadata", handler.GetKeyMetadata).Methods("GET")

	api.HandleFunc("/tasks/{id}/votes", handler.SubmitVote).Methods("POST")
	api.HandleFunc("/tasks/{id}/tally", handler.GetTally).Methods("GET")

	s.router.HandleFunc("/health", handler.HandleHealth).Methods("GET")
	if collector != nil {
		s.router.Handle("/metrics", collector.Handler()).Methods("GET")
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}
