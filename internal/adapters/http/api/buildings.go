package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// BuildingsHandler handles building registration and profile reads.
type BuildingsHandler struct {
	deps Dependencies
}

// NewBuildingsHandler creates a new buildings handler.
func NewBuildingsHandler(deps Dependencies) *BuildingsHandler {
	return &BuildingsHandler{deps: deps}
}

// registerRequest mirrors the POST /buildings payload.
type registerRequest struct {
	BuildingID string `json:"building_id"`
	Address    string `json:"address"`
	ZipCode    string `json:"zip_code"`
}

func (r registerRequest) validate() error {
	if strings.TrimSpace(r.BuildingID) == "" {
		return errors.New("missing building_id")
	}
	return nil
}

// HandleRegisterBuilding handles POST /buildings requests. Registration is
// idempotent: an already-registered building keeps its original baseline.
func (h *BuildingsHandler) HandleRegisterBuilding(w http.ResponseWriter, r *http.Request) {
	const op = "api.register_building"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	profile, err := h.deps.RegisterBuilding(r.Context(), req.BuildingID, req.Address, req.ZipCode)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// HandleGetBuilding handles GET /buildings/{id} requests.
func (h *BuildingsHandler) HandleGetBuilding(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_building"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/buildings/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}

	profile, err := h.deps.BuildingProfile(r.Context(), id)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", errors.New("building not found"))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
