package api

import (
	"net/http"

	"pharmalink/m/domain"
	"pharmalink/m/internal/service"
)

type pharmacyRequest struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type registerRequest struct {
	Email    string           `json:"email"`
	Password string           `json:"password"`
	Name     string           `json:"name"`
	Phone    string           `json:"phone"`
	Role     string           `json:"role"`
	Pharmacy *pharmacyRequest `json:"pharmacy,omitempty"`
}

type authResponse struct {
	Token    string           `json:"token"`
	User     *domain.User     `json:"user"`
	Pharmacy *domain.Pharmacy `json:"pharmacy,omitempty"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	in := service.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     domain.Role(req.Role),
	}
	if req.Pharmacy != nil {
		in.Pharmacy = &service.PharmacyDetails{
			Name:      req.Pharmacy.Name,
			Address:   req.Pharmacy.Address,
			Phone:     req.Pharmacy.Phone,
			Latitude:  req.Pharmacy.Latitude,
			Longitude: req.Pharmacy.Longitude,
		}
	}

	user, pharmacy, err := h.accounts.Register(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, authResponse{Token: token, User: user, Pharmacy: pharmacy})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	token, err := h.tokens.Issue(user.ID, user.Role)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, authResponse{Token: token, User: user})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	user, err := h.accounts.Profile(r.Context(), actorFrom(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"user": user})
}
