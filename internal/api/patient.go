package api

import (
	"net/http"

	"pharmalink/m/internal/service"
)

func (h *Handler) searchPharmacies(w http.ResponseWriter, r *http.Request) {
	q := service.PharmacyQuery{Medication: r.URL.Query().Get("medication")}
	var err error
	if q.Latitude, err = optionalFloat(r, "lat"); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid latitude")
		return
	}
	if q.Longitude, err = optionalFloat(r, "lng"); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid longitude")
		return
	}
	if q.MaxDistanceKm, err = optionalFloat(r, "max_distance"); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid max_distance")
		return
	}

	result, err := h.search.FindPharmacies(r.Context(), q)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) searchMedications(w http.ResponseWriter, r *http.Request) {
	meds, err := h.search.SearchMedications(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"medications": meds})
}

type reservationRequest struct {
	PharmacyID    int64  `json:"pharmacy_id"`
	MedicationID  int64  `json:"medication_id"`
	Quantity      *int64 `json:"quantity"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Notes         string `json:"notes"`
}

func (h *Handler) createReservation(w http.ResponseWriter, r *http.Request) {
	var req reservationRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	quantity := int64(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	res, err := h.reservations.Create(r.Context(), actorFrom(r), service.CreateReservationRequest{
		PharmacyID:    req.PharmacyID,
		MedicationID:  req.MedicationID,
		Quantity:      quantity,
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Notes:         req.Notes,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"message":     "Reservation created successfully",
		"reservation": res,
	})
}

// listReservations serves both the patient's and the pharmacist's listing;
// the service scopes results by the caller's role.
func (h *Handler) listReservations(w http.ResponseWriter, r *http.Request) {
	page, err := h.reservations.List(r.Context(), actorFrom(r), service.ReservationQuery{
		Status:      r.URL.Query().Get("status"),
		PageRequest: pageParams(r),
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (h *Handler) getReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusNotFound, service.ErrMsgReservationNotFound)
		return
	}
	res, err := h.reservations.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reservation": res})
}

func (h *Handler) cancelReservation(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusNotFound, service.ErrMsgReservationNotFound)
		return
	}
	res, err := h.reservations.Cancel(r.Context(), actorFrom(r), id)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Reservation cancelled successfully",
		"reservation": res,
	})
}
