package pharmacy

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc    Service
	logger *zap.Logger
}

func NewHandler(svc Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

type UpdateItemRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.GetCart(r.Context(), chi.URLParam(r, "userID")))
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	var item Item
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	v, err := h.svc.AddItem(r.Context(), chi.URLParam(r, "userID"), item)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.RemoveItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	v, err := h.svc.UpdateItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"), req.Delta)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.svc.ClearCart(r.Context(), chi.URLParam(r, "userID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	order, err := h.svc.Checkout(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidItem), errors.Is(err, ErrEmptyCart):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrItemNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("pharmacy request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/cart/{userID}", func(r chi.Router) {
		r.Get("/", h.GetCart)
		r.Post("/", h.AddItem)
		r.Delete("/", h.ClearCart)
		r.Post("/checkout", h.Checkout)
		r.Patch("/{itemID}", h.UpdateItem)
		r.Delete("/{itemID}", h.RemoveItem)
	})
	r.Get("/orders/{userID}", h.ListOrders)
}
