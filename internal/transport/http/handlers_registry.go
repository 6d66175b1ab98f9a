package httptransport

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trustgrid/internal/registry"
	"trustgrid/internal/resolution/models"
	dErrors "trustgrid/pkg/domain-errors"
)

// RegistryHandler serves the provider catalog admin endpoints.
type RegistryHandler struct {
	admin registry.Admin
}

func NewRegistryHandler(admin registry.Admin) *RegistryHandler {
	return &RegistryHandler{admin: admin}
}

func (h *RegistryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	providers, err := h.admin.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": providers})
}

func (h *RegistryHandler) handlePublish(w http.ResponseWriter, r *http.Request) {
	var provider models.ProviderDescriptor
	if err := json.NewDecoder(r.Body).Decode(&provider); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	if err := h.admin.Publish(r.Context(), provider); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, provider)
}

func (h *RegistryHandler) handleUnpublish(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	if providerID == "" {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "provider ID is required"))
		return
	}

	if err := h.admin.Unpublish(r.Context(), providerID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
