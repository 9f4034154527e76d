package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mmeshcher/schoolshop/internal/checkout"
	"github.com/mmeshcher/schoolshop/internal/model"
	"github.com/mmeshcher/schoolshop/internal/repository"
	"github.com/mmeshcher/schoolshop/internal/service"
)

type checkoutRequest struct {
	Items    []service.CartLine    `json:"items"`
	Customer checkout.CustomerForm `json:"customer"`
}

type orderItemResponse struct {
	ProductID   *int64  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	LineTotal   float64 `json:"line_total"`
}

type orderResponse struct {
	ID           string              `json:"id"`
	CustomerName string              `json:"customer_name"`
	Phone        string              `json:"phone"`
	WilayaCode   int                 `json:"wilaya_code"`
	WilayaName   string              `json:"wilaya_name"`
	Commune      string              `json:"commune"`
	Address      string              `json:"address"`
	Items        []orderItemResponse `json:"items"`
	Subtotal     float64             `json:"subtotal"`
	ShippingFee  float64             `json:"shipping_fee"`
	GrandTotal   float64             `json:"grand_total"`
	Status       string              `json:"status"`
	DeliveryType string              `json:"delivery_type"`
	CreatedAt    string              `json:"created_at"`
}

func toOrderResponse(o *model.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.InexactFloat64(),
			LineTotal:   it.LineTotal().InexactFloat64(),
		})
	}

	return orderResponse{
		ID:           o.ID.String(),
		CustomerName: o.CustomerName,
		Phone:        o.Phone,
		WilayaCode:   o.WilayaCode,
		WilayaName:   o.WilayaName,
		Commune:      o.Commune,
		Address:      o.Address,
		Items:        items,
		Subtotal:     o.Subtotal.InexactFloat64(),
		ShippingFee:  o.ShippingFee.InexactFloat64(),
		GrandTotal:   o.GrandTotal.InexactFloat64(),
		Status:       string(o.Status),
		DeliveryType: string(o.DeliveryType),
		CreatedAt:    o.CreatedAt.Format(time.RFC3339),
	}
}

// PlaceOrder оформляет заказ из корзины витрины.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), req.Items, req.Customer)
	if err != nil {
		h.writeError(w, "place order", err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

// ListOrders возвращает заказы для панели администратора. Поддерживает ?status= и ?limit=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	var filter repository.OrderFilter

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = model.OrderStatus(s)
		if !filter.Status.Valid() {
			h.writeError(w, "list orders", &checkout.ValidationError{Field: "status", Reason: "has unsupported value"})
			return
		}
	}
	if s := r.URL.Query().Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 0 {
			writeStatus(w, http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.writeError(w, "list orders", err)
		return
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, toOrderResponse(&orders[i]))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetOrder возвращает заказ по идентификатору.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus переводит заказ в новый статус.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.writeError(w, "update order status", err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type dispatchRequest struct {
	StationCode string `json:"station_code"`
}

// DispatchOrder передаёт заказ в NOEST и возвращает ответ ретранслятора как есть.
func (h *Handler) DispatchOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := orderID(w, r)
	if !ok {
		return
	}

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	resp, err := h.service.DispatchOrder(r.Context(), id, req.StationCode)
	if err != nil {
		h.writeError(w, "dispatch order", err)
		return
	}
	writeJSON(w, resp.StatusCode, resp)
}

func orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeStatus(w, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}
