package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/schoolshop/internal/model"
)

type productResponse struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Images      []string `json:"images"`
	Description string   `json:"description"`
	Benefits    []string `json:"benefits"`
	Stock       int      `json:"stock"`
	Sales       int      `json:"sales"`
	CreatedAt   string   `json:"created_at"`
}

func toProductResponse(p model.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    string(p.Category),
		Price:       p.Price.InexactFloat64(),
		Images:      nonNil(p.Images),
		Description: p.Description,
		Benefits:    nonNil(p.Benefits),
		Stock:       p.Stock,
		Sales:       p.Sales,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
	}
}

type productRequest struct {
	Name        string          `json:"name"`
	Category    model.Category  `json:"category"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images"`
	Description string          `json:"description"`
	Benefits    []string        `json:"benefits"`
	Stock       int             `json:"stock"`
}

func (p productRequest) toModel(id int64) model.Product {
	return model.Product{
		ID:          id,
		Name:        p.Name,
		Category:    p.Category,
		Price:       p.Price,
		Images:      p.Images,
		Description: p.Description,
		Benefits:    p.Benefits,
		Stock:       p.Stock,
	}
}

// ListProducts возвращает каталог, опционально по категории.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	category := model.Category(r.URL.Query().Get("category"))

	products, err := h.service.ListProducts(r.Context(), category)
	if err != nil {
		h.writeError(w, "list products", err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		resp = append(resp, toProductResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetProduct возвращает карточку товара.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.writeError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// ListWilayas возвращает тарифы доставки по всем вилайям.
func (h *Handler) ListWilayas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rates.All())
}

// CreateProduct добавляет товар в каталог.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	p, err := h.service.SaveProduct(r.Context(), req.toModel(0))
	if err != nil {
		h.writeError(w, "create product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

// UpdateProduct изменяет карточку товара.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeStatus(w, http.StatusBadRequest)
		return
	}

	p, err := h.service.SaveProduct(r.Context(), req.toModel(id))
	if err != nil {
		h.writeError(w, "update product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

// DeleteProduct удаляет товар. Сохранённые заказы сохраняют название и цену позиции.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.writeError(w, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeStatus(w, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
