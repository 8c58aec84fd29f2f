package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/auth"
	"pharmalink/m/internal/service"
)

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Accounts     *service.Accounts
	Ledger       *service.Ledger
	Reservations *service.Reservations
	Search       *service.Search
	Tokens       *auth.Tokens
	Log          *zap.Logger
	CORSOrigins  []string
}

// Handler bundles dependencies for HTTP handlers.
type Handler struct {
	accounts     *service.Accounts
	ledger       *service.Ledger
	reservations *service.Reservations
	search       *service.Search
	tokens       *auth.Tokens
	log          *zap.Logger
	corsOrigins  []string
}

// New constructs a Handler.
func New(d Deps) *Handler {
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return &Handler{
		accounts:     d.Accounts,
		ledger:       d.Ledger,
		reservations: d.Reservations,
		search:       d.Search,
		tokens:       d.Tokens,
		log:          d.Log,
		corsOrigins:  origins,
	}
}

// Router wires up the HTTP API.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(h.requestLogger)
	r.Use(h.recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: h.corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         300,
	}))
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "Resource not found")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.register)
			r.Post("/login", h.login)
			r.With(h.authMiddleware).Get("/me", h.me)
		})

		r.Route("/patient", func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Use(requireRole(domain.RolePatient))
			r.Get("/pharmacies/search", h.searchPharmacies)
			r.Get("/medications/search", h.searchMedications)
			r.Post("/reservations", h.createReservation)
			r.Get("/reservations", h.listReservations)
			r.Get("/reservations/{id}", h.getReservation)
			r.Put("/reservations/{id}/cancel", h.cancelReservation)
		})

		r.Route("/pharmacist", func(r chi.Router) {
			r.Use(h.authMiddleware)
			r.Use(requireRole(domain.RolePharmacist))
			r.Get("/dashboard", h.dashboard)
			r.Get("/inventory", h.listInventory)
			r.Post("/inventory", h.addInventory)
			r.Put("/inventory/{id}", h.updateInventory)
			r.Get("/reservations", h.listReservations)
			r.Get("/reservations/{id}", h.getReservation)
			r.Put("/reservations/{id}", h.updateReservationStatus)
		})
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy", "message": "PharmaLink API is running"})
}

// Helpers

var errEmptyBody = errors.New("request body is required")

func decodeJSON(r *http.Request, dest interface{}) error {
	if r.Body == nil {
		return errEmptyBody
	}
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

// respondDecodeError rejects a malformed body without echoing decoder
// details to the client.
func (h *Handler) respondDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "Request body is required")
		return
	}
	h.log.Debug("malformed request body",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
	respondError(w, http.StatusBadRequest, "Invalid request body")
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondServiceError maps a service failure to its status code. Internal
// errors are logged and replaced by a generic message.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch service.KindOf(err) {
	case service.KindValidation, service.KindInsufficientStock, service.KindInvalidTransition, service.KindInvalidStatus:
		status = http.StatusBadRequest
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindForbidden:
		status = http.StatusForbidden
	case service.KindConflict:
		status = http.StatusConflict
	case service.KindUnauthorized:
		status = http.StatusUnauthorized
	default:
		h.log.Error("request failed",
			zap.String("request_id", requestIDFrom(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	respondError(w, status, err.Error())
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// pageParams reads page and per_page; unparsable values fall back to defaults.
func pageParams(r *http.Request) service.PageRequest {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return service.PageRequest{Page: page, PerPage: perPage}
}

// optionalFloat parses an optional query parameter.
func optionalFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
