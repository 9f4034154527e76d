// Package handler содержит HTTP-обработчики API магазина.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/schoolshop/internal/checkout"
	"github.com/mmeshcher/schoolshop/internal/middleware"
	"github.com/mmeshcher/schoolshop/internal/model"
	"github.com/mmeshcher/schoolshop/internal/notification"
	"github.com/mmeshcher/schoolshop/internal/relay"
	"github.com/mmeshcher/schoolshop/internal/repository"
	"github.com/mmeshcher/schoolshop/internal/service"
	"github.com/mmeshcher/schoolshop/internal/shipping"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	PlaceOrder(ctx context.Context, lines []service.CartLine, form checkout.CustomerForm) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, error)
	DispatchOrder(ctx context.Context, id uuid.UUID, stationCode string) (*relay.Response, error)

	ListProducts(ctx context.Context, category model.Category) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	SaveProduct(ctx context.Context, p model.Product) (*model.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	Notifications(ctx context.Context) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
	ClearNotifications(ctx context.Context) error
}

// Relay описывает ретранслятор NOEST, доступный витрине напрямую.
type Relay interface {
	Health() relay.HealthReport
	Do(ctx context.Context, req relay.Request) relay.Response
}

// Handler реализует HTTP-обработчики API магазина.
type Handler struct {
	service Service
	relay   Relay
	rates   *shipping.Table
	auth    *middleware.AdminAuth
	logger  *zap.Logger
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, r Relay, rates *shipping.Table, auth *middleware.AdminAuth, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		service: s,
		relay:   r,
		rates:   rates,
		auth:    auth,
		logger:  logger,
	}
}

type errorResponse struct {
	Error  string                   `json:"error"`
	Field  string                   `json:"field,omitempty"`
	Reason string                   `json:"reason,omitempty"`
	Items  []service.OutOfStockItem `json:"items,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int) {
	writeJSON(w, status, errorResponse{Error: http.StatusText(status)})
}

// writeError переводит ошибку сервиса в HTTP-ответ. Неизвестные ошибки логируются
// и отдаются как 500 без подробностей.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		validationErr *checkout.ValidationError
		wilayaErr     *shipping.UnknownWilayaError
		transitionErr *model.InvalidTransitionError
		stockErr      *service.OutOfStockError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation_failed",
			Field:  validationErr.Field,
			Reason: validationErr.Reason,
		})
	case errors.Is(err, checkout.ErrEmptyCart):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &wilayaErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error(), Field: "wilaya"})
	case errors.Is(err, service.ErrInvalidProduct):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, notification.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.As(err, &transitionErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "out_of_stock", Items: stockErr.Items})
	case errors.Is(err, repository.ErrInsufficientStock):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "out_of_stock"})
	case errors.Is(err, repository.ErrDuplicate), errors.Is(err, repository.ErrConstraint):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeStatus(w, http.StatusInternalServerError)
	}
}
