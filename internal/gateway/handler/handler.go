package handler

import (
	"net/http"

	"reportify/internal/gateway/middleware"
	"reportify/internal/pipeline"
	"reportify/internal/store"
)

// Service exposes the generation pipeline over HTTP. It holds the generator
// and the run store as its dependencies.
type Service struct {
	gen  *pipeline.Generator
	runs *store.RunStore
}

func NewService(gen *pipeline.Generator, runs *store.RunStore) *Service {
	return &Service{gen: gen, runs: runs}
}

// BuildMux registers all HTTP handlers on a new ServeMux.
func BuildMux(s *Service) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/generate", s.HandleGenerateWS)
	mux.HandleFunc("/runs", s.HandleGetRun)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return middleware.CORS(mux)
}
