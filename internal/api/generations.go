package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleGetGeneration(w http.ResponseWriter, r *http.Request) {
	svc, err := s.workflowService()
	if err != nil {
		writeError(w, r, err)
		return
	}

	actor, _ := ActorFromContext(r.Context())

	record, err := svc.GetGeneration(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeSuccess(w, r, http.StatusOK, record)
}
