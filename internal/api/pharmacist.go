package api

import (
	"net/http"

	"github.com/shopspring/decimal"

	"pharmalink/m/internal/service"
)

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.reservations.Dashboard(r.Context(), actorFrom(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, d)
}

func (h *Handler) listInventory(w http.ResponseWriter, r *http.Request) {
	pharmacy, err := h.ledger.PharmacyFor(r.Context(), actorFrom(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	page, err := h.ledger.List(r.Context(), pharmacy.ID, r.URL.Query().Get("search"), pageParams(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

type inventoryRequest struct {
	MedicationID  int64            `json:"medication_id"`
	StockQuantity int64            `json:"stock_quantity"`
	Price         *decimal.Decimal `json:"price"`
}

func (h *Handler) addInventory(w http.ResponseWriter, r *http.Request) {
	var req inventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	pharmacy, err := h.ledger.PharmacyFor(r.Context(), actorFrom(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	in := service.StockInput{MedicationID: req.MedicationID, StockQuantity: req.StockQuantity}
	if req.Price != nil {
		in.Price = *req.Price
	}

	entry, err := h.ledger.Upsert(r.Context(), pharmacy.ID, in)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Inventory updated successfully",
		"inventory": entry,
	})
}

type inventoryPatchRequest struct {
	StockQuantity *int64           `json:"stock_quantity"`
	Price         *decimal.Decimal `json:"price"`
}

func (h *Handler) updateInventory(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusNotFound, service.ErrMsgInventoryNotFound)
		return
	}
	var req inventoryPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}
	pharmacy, err := h.ledger.PharmacyFor(r.Context(), actorFrom(r))
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	entry, err := h.ledger.AdjustEntry(r.Context(), pharmacy.ID, id, service.StockPatch{
		StockQuantity: req.StockQuantity,
		Price:         req.Price,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":   "Inventory updated successfully",
		"inventory": entry,
	})
}

func (h *Handler) updateReservationStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		respondError(w, http.StatusNotFound, service.ErrMsgReservationNotFound)
		return
	}
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		h.respondDecodeError(w, r, err)
		return
	}

	res, err := h.reservations.Transition(r.Context(), actorFrom(r), id, payload.Status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":     "Reservation status updated successfully",
		"reservation": res,
	})
}
