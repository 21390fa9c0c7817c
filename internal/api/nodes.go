package api

import (
	"net/http"

	"chainreact/internal/nodes"
	"chainreact/pkg/errors"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := nodes.Filter{
		Category:      nodes.Category(query.Get("category")),
		ProviderID:    query.Get("provider"),
		TriggersOnly:  query.Get("triggers") == "true",
		ActionsOnly:   query.Get("actions") == "true",
		AvailableOnly: query.Get("available") == "true",
	}

	defs := s.deps.Registry.List(filter)

	writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"nodes":     defs,
		"total":     len(defs),
		"providers": s.deps.Registry.Providers(),
	})
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	nodeType := chi.URLParam(r, "type")

	def, err := s.deps.Registry.Get(nodeType)
	if err != nil {
		writeError(w, r, errors.NotFoundError("node type "+nodeType))
		return
	}

	writeSuccess(w, r, http.StatusOK, def)
}
