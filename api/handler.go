// Package api - HTTP handlers over the pricing engine
// Handlers decode, delegate to the engine and encode. They never price anything.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"vat-cost/adapters/storage"
	"vat-cost/core/engine"
	"vat-cost/core/types"
	"vat-cost/internal/errors"
	"vat-cost/internal/logging"
)

const maxBodyBytes = 1 << 20

// Catalog is the read side of the catalog the handlers need
type Catalog interface {
	Country(code string) (types.Country, bool)
	Countries() []types.Country
}

// Handler serves the pricing endpoints
type Handler struct {
	engine  *engine.Engine
	catalog Catalog
	store   storage.Store
	version string
	logger  *zap.Logger
}

// NewHandler creates a handler. store may be nil, in which case quotes are
// never saved and history endpoints answer 404.
func NewHandler(eng *engine.Engine, catalog Catalog, store storage.Store, version string, logger *zap.Logger) *Handler {
	return &Handler{
		engine:  eng,
		catalog: catalog,
		store:   store,
		version: version,
		logger:  logging.OrDefault(logger),
	}
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"version": h.version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Version handles GET /version
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	cfg := h.engine.Config()
	writeJSON(w, http.StatusOK, map[string]string{
		"version":     h.version,
		"engine":      "vat-cost",
		"api_version": "v1",
		"currency":    string(cfg.Currency),
	})
}

// ListCountries handles GET /v1/countries
func (h *Handler) ListCountries(w http.ResponseWriter, r *http.Request) {
	countries := h.catalog.Countries()
	out := make([]CountryResponse, 0, len(countries))
	for _, c := range countries {
		out = append(out, countryResponse(c))
	}
	writeJSON(w, http.StatusOK, out)
}

// Quote handles POST /v1/quote
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	calcCtx, err := req.Context()
	if err == nil {
		err = h.checkCountries(calcCtx.CountryCodes)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	calc, err := h.engine.Calculate(r.Context(), calcCtx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if req.Save && h.store != nil {
		if err := h.store.Save(r.Context(), calc); err != nil {
			h.writeError(w, r, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, calc)
}

// Compare handles POST /v1/compare
func (h *Handler) Compare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}

	scenarios, err := req.scenarios()
	if err == nil {
		for _, s := range scenarios {
			if err = h.checkCountries(s.Request.CountryCodes); err != nil {
				err = errors.Wrap(errors.TypeValidation, "invalid scenario "+s.Name, err).
					WithContext("scenario", s.Name)
				break
			}
		}
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	cmp, err := h.engine.Compare(r.Context(), scenarios)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cmp)
}

// GetCalculation handles GET /v1/calculations/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if h.store == nil {
		h.writeError(w, r, errors.NotFound("calculation", id))
		return
	}

	calc, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calc)
}

// ListCalculations handles GET /v1/calculations
func (h *Handler) ListCalculations(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []*types.Calculation{})
		return
	}

	filter := &storage.ListFilter{Limit: 50, InputHash: r.URL.Query().Get("input_hash")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeError(w, r, errors.Validation("limit", "limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	calcs, err := h.store.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calcs)
}

// checkCountries rejects codes the catalog has never heard of so a typo is
// reported as a bad request rather than a catalog failure
func (h *Handler) checkCountries(codes []string) error {
	for _, code := range upper(codes) {
		if code == "" {
			continue
		}
		if _, ok := h.catalog.Country(code); !ok {
			return errors.Validation("country_codes", "unknown country "+code).
				WithContext("country", code)
		}
	}
	return nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, errors.Wrap(errors.TypeValidation, "invalid JSON body", err).
			WithContext("field", "body"))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	typ := errors.TypeOf(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("error_type", string(typ)),
			zap.Error(err),
		)
	}

	writeJSON(w, status, ErrorResponse{Error: ErrorBody{
		Code:      string(typ),
		Message:   err.Error(),
		Context:   errors.ContextOf(err),
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// StatusFor maps an error category onto an HTTP status
func StatusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.TypeValidation:
		return http.StatusBadRequest
	case errors.TypeNotFound:
		return http.StatusNotFound
	case errors.TypeCanceled:
		return http.StatusGatewayTimeout
	default:
		if stdCanceled(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	}
}

func stdCanceled(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
