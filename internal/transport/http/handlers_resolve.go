package httptransport

import (
	"context"
	"encoding/json"
	"net/http"

	"trustgrid/internal/resolution/models"
	dErrors "trustgrid/pkg/domain-errors"
)

// maxBatchSize bounds one batch request so a single caller cannot monopolize
// the resolver pool.
const maxBatchSize = 64

// ResolveService is the domain surface the resolve endpoints need.
type ResolveService interface {
	Resolve(ctx context.Context, rs models.RequirementSet, class models.Classification) (*models.Result, error)
	ResolveAll(ctx context.Context, requirements []models.RequirementSet, class models.Classification) ([]*models.Result, error)
}

// ResolveHandler serves the resolution endpoints.
type ResolveHandler struct {
	service ResolveService
}

func NewResolveHandler(service ResolveService) *ResolveHandler {
	return &ResolveHandler{service: service}
}

type resolveRequest struct {
	Requirement    models.RequirementSet `json:"requirement"`
	Classification string                `json:"classification"`
}

type batchResolveRequest struct {
	Requirements   []models.RequirementSet `json:"requirements"`
	Classification string                  `json:"classification"`
}

func (h *ResolveHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	class, err := models.ParseClassification(req.Classification)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := req.Requirement.Validate(); err != nil {
		writeError(w, err)
		return
	}

	result, err := h.service.Resolve(r.Context(), req.Requirement, class)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *ResolveHandler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var req batchResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "invalid request body"))
		return
	}

	class, err := models.ParseClassification(req.Classification)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.Requirements) == 0 {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "requirements are required"))
		return
	}
	if len(req.Requirements) > maxBatchSize {
		writeError(w, dErrors.New(dErrors.CodeInvalidInput, "batch exceeds maximum size"))
		return
	}

	results, err := h.service.ResolveAll(r.Context(), req.Requirements, class)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}
