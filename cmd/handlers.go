package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/livability-cli/internal/model"
	"github.com/sells-group/livability-cli/internal/pipeline"
	"github.com/sells-group/livability-cli/internal/scorer"
)

const maxBodyBytes = 1 << 20

// newRouter mounts the health check and the point query API.
func newRouter(env *queryEnv, origins []string) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	h := &apiHandler{env: env}
	r.Get("/health", h.HandleHealth)
	r.Route("/api", h.RegisterRoutes)
	return r
}

// apiHandler serves the point query endpoints.
type apiHandler struct {
	env *queryEnv
}

// RegisterRoutes mounts the API endpoints onto r.
func (h *apiHandler) RegisterRoutes(r chi.Router) {
	r.Post("/mapOnClick", h.HandleMapClick)
	r.Post("/density", h.HandleDensity)
	r.Post("/score", h.HandleScore)
}

// pointRequest is the body of /api/mapOnClick and /api/density.
type pointRequest struct {
	model.PointInput
	Weights       map[string]float64  `json:"weights,omitempty"`
	Preferences   *scorer.Preferences `json:"preferences,omitempty"`
	RentUSD       *float64            `json:"rentUsd,omitempty"`
	TransitGood01 *float64            `json:"transitGood01,omitempty"`
	Summary       bool                `json:"summary,omitempty"`
}

// weights returns explicit weights, else preference-derived ones, else nil.
func (req pointRequest) weights() scorer.Weights {
	if len(req.Weights) > 0 {
		return toWeights(req.Weights)
	}
	if req.Preferences != nil {
		return scorer.WeightsFromPreferences(*req.Preferences)
	}
	return nil
}

// scoreRequest is the body of /api/score.
type scoreRequest struct {
	Raw     scorer.RawSignals  `json:"raw"`
	Weights map[string]float64 `json:"weights,omitempty"`
}

// HandleHealth reports liveness, dataset state and breaker states.
func (h *apiHandler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	rep := h.env.Dataset.Report()
	writeOK(w, map[string]any{
		"dataset": map[string]any{
			"path":     h.env.Dataset.Path(),
			"loaded":   rep.Loaded,
			"rejected": rep.Rejected,
		},
		"breakers": h.env.Breakers.States(),
	})
}

// HandleMapClick evaluates a clicked point: POST /api/mapOnClick.
func (h *apiHandler) HandleMapClick(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := req.Point()
	if err != nil {
		writeError(w, err)
		return
	}

	report, err := h.env.Pipeline.Evaluate(r.Context(), pipeline.Query{
		Point:   p,
		Weights: req.weights(),
		Overrides: pipeline.Overrides{
			RentUSD:       req.RentUSD,
			TransitGood01: req.TransitGood01,
		},
		Summary: req.Summary,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeOK(w, report)
}

// HandleDensity answers the population statistics for a point: POST /api/density.
func (h *apiHandler) HandleDensity(w http.ResponseWriter, r *http.Request) {
	var req pointRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := req.Point()
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.env.Density.Resolve(p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSONStatus(w, http.StatusOK, res)
}

// HandleScore scores caller-supplied raw signals without upstream calls: POST /api/score.
func (h *apiHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	var req scoreRequest
	if !decode(w, r, &req) {
		return
	}
	weights := toWeights(req.Weights)
	if err := scorer.ValidateWeights(weights); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if len(weights) == 0 {
		weights = h.env.Weights
	}
	writeJSONStatus(w, http.StatusOK, scorer.Compute(req.Raw, weights))
}

func toWeights(m map[string]float64) scorer.Weights {
	if len(m) == 0 {
		return nil
	}
	w := make(scorer.Weights, len(m))
	for k, v := range m {
		w[scorer.Factor(k)] = v
	}
	return w
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSONStatus(w, http.StatusBadRequest, errorBody("invalid request body"))
		return false
	}
	return true
}

func writeOK(w http.ResponseWriter, data any) {
	writeJSONStatus(w, http.StatusOK, map[string]any{"status": "ok", "data": data})
}

// writeError maps invalid input to 400 and everything else to 500.
func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrInvalidInput) {
		writeJSONStatus(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	zap.L().Error("api: request failed", zap.Error(err))
	writeJSONStatus(w, http.StatusInternalServerError, errorBody("internal error"))
}

func errorBody(msg string) map[string]string {
	return map[string]string{"status": "error", "message": msg}
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}
