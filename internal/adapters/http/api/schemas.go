package api

import (
	"net/http"

	"github.com/okian/renalrisk/internal/domain/model"
	"github.com/okian/renalrisk/internal/domain/types"
)

// SchemaHandler exposes the input surface and slot order of each target.
type SchemaHandler struct {
	deps Dependencies
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(deps Dependencies) *SchemaHandler {
	return &SchemaHandler{deps: deps}
}

// HandleList handles GET /v1/schemas.
func (h *SchemaHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	schemas := h.deps.Schemas()
	out := make([]types.SchemaDescriptor, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, types.DescribeSchema(s))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /v1/schemas/{target}.
func (h *SchemaHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	target, err := model.ParseTarget(r.PathValue("target"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	for _, s := range h.deps.Schemas() {
		if s.Target() == target {
			writeJSON(w, http.StatusOK, types.DescribeSchema(s))
			return
		}
	}
	writeError(w, http.StatusNotFound, "unknown_target", nil)
}
