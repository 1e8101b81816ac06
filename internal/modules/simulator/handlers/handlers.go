// Package handlers provides HTTP handlers for simulator operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/coherence/internal/modules/simulator"
	"github.com/aristath/coherence/pkg/cmat"
	"github.com/rs/zerolog"
)

// Handler handles simulator HTTP requests
type Handler struct {
	engine *simulator.Engine
	log    zerolog.Logger
}

// NewHandler creates a new simulator handler
func NewHandler(engine *simulator.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "simulator").Logger(),
	}
}

// ComplexValue is the wire form of one complex entry
type ComplexValue struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// StepRequest represents a request to advance all domains by dt
type StepRequest struct {
	Dt         float64                     `json:"dt"`
	Substeps   int                         `json:"substeps,omitempty"`
	Strength   float64                     `json:"strength,omitempty"`
	Strengths  map[string]float64          `json:"strengths,omitempty"`
	Projectors map[string][][]ComplexValue `json:"projectors,omitempty"`
}

// CollapseRequest represents a request to collapse one domain onto a
// measurement outcome
type CollapseRequest struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
}

// HandleStep handles POST /api/simulator/step
func (h *Handler) HandleStep(w http.ResponseWriter, r *http.Request) {
	var req StepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	opts := simulator.StepOptions{
		Strength:  req.Strength,
		Strengths: req.Strengths,
		Substeps:  req.Substeps,
	}
	if len(req.Projectors) > 0 {
		opts.Projectors = make(map[string]cmat.Matrix, len(req.Projectors))
		for name, rows := range req.Projectors {
			projector, err := matrixFromWire(rows)
			if err != nil {
				http.Error(w, "Invalid projector for domain "+name+": "+err.Error(), http.StatusBadRequest)
				return
			}
			opts.Projectors[name] = projector
		}
	}

	snapshots, err := h.engine.Step(req.Dt, opts)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	snapshotData := make(map[string]interface{}, len(snapshots))
	for name, snap := range snapshots {
		snapshotData[name] = snapshotToWire(snap)
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"dt":        req.Dt,
			"snapshots": snapshotData,
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleCollapse handles POST /api/simulator/collapse
func (h *Handler) HandleCollapse(w http.ResponseWriter, r *http.Request) {
	var req CollapseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snapshot, err := h.engine.Collapse(req.Domain, req.Label)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, simulator.ErrUnknownDomain) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"domain":   req.Domain,
			"label":    req.Label,
			"snapshot": snapshotToWire(snapshot),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleListDomains handles GET /api/simulator/domains
func (h *Handler) HandleListDomains(w http.ResponseWriter, r *http.Request) {
	names := h.engine.Domains()
	domains := make([]map[string]interface{}, 0, len(names))
	for _, name := range names {
		dimension, err := h.engine.Dimension(name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		domains = append(domains, map[string]interface{}{
			"name":      name,
			"dimension": dimension,
		})
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"domains": domains,
			"count":   len(domains),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

// HandleGetDensityMatrix handles GET /api/simulator/density-matrix
func (h *Handler) HandleGetDensityMatrix(w http.ResponseWriter, r *http.Request) {
	domain := r.URL.Query().Get("domain")
	if domain == "" {
		http.Error(w, "Missing domain query parameter", http.StatusBadRequest)
		return
	}

	rho, err := h.engine.DensityMatrix(domain)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, simulator.ErrUnknownDomain) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}

	response := map[string]interface{}{
		"data": map[string]interface{}{
			"domain":         domain,
			"density_matrix": matrixToWire(rho),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

func snapshotToWire(snap simulator.Snapshot) map[string]interface{} {
	data := map[string]interface{}{
		"density_matrix":            matrixToWire(snap.DensityMatrix),
		"coherence":                 snap.Coherence,
		"purity":                    snap.Purity,
		"measurement_probabilities": snap.MeasurementProbabilities,
	}
	if snap.Quality != nil {
		data["quality"] = *snap.Quality
	}
	return data
}

func matrixToWire(m cmat.Matrix) [][]ComplexValue {
	n := m.Dim()
	rows := make([][]ComplexValue, n)
	for i := 0; i < n; i++ {
		row := make([]ComplexValue, n)
		for j := 0; j < n; j++ {
			z := m.At(i, j)
			row[j] = ComplexValue{Re: real(z), Im: imag(z)}
		}
		rows[i] = row
	}
	return rows
}

func matrixFromWire(rows [][]ComplexValue) (cmat.Matrix, error) {
	converted := make([][]complex128, len(rows))
	for i, row := range rows {
		converted[i] = make([]complex128, len(row))
		for j, z := range row {
			converted[i][j] = complex(z.Re, z.Im)
		}
	}
	return cmat.FromRows(converted)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
