// Package service реализует бизнес-логику магазина школьных принадлежностей.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mmeshcher/schoolshop/internal/checkout"
	"github.com/mmeshcher/schoolshop/internal/model"
	"github.com/mmeshcher/schoolshop/internal/notification"
	"github.com/mmeshcher/schoolshop/internal/relay"
	"github.com/mmeshcher/schoolshop/internal/repository"
)

// LowStockThreshold задаёт остаток, при котором администратор получает уведомление.
const LowStockThreshold = 5

// ErrInvalidProduct возвращается при некорректной карточке товара.
var ErrInvalidProduct = errors.New("invalid product")

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	ListProducts(ctx context.Context, category model.Category) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetProductsByIDs(ctx context.Context, ids []int64) (map[int64]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (*model.Product, error)
	UpdateProduct(ctx context.Context, p model.Product) error
	DeleteProduct(ctx context.Context, id int64) error
	CreateOrder(ctx context.Context, o *model.Order) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, error)
}

// Courier описывает ретранслятор, через который заказ передаётся в NOEST.
type Courier interface {
	Do(ctx context.Context, req relay.Request) relay.Response
}

// CartLine описывает позицию корзины в том виде, в каком её присылает витрина.
type CartLine struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// OutOfStockItem описывает позицию, которой не хватает на складе.
type OutOfStockItem struct {
	ProductID int64 `json:"product_id"`
	Requested int   `json:"requested"`
	Available int   `json:"available"`
}

// OutOfStockError возвращается, если остатков не хватает для оформления заказа.
type OutOfStockError struct {
	Items []OutOfStockItem
}

func (e *OutOfStockError) Error() string {
	if len(e.Items) == 0 {
		return "out of stock"
	}
	it := e.Items[0]
	return fmt.Sprintf("out of stock: product=%d requested=%d available=%d", it.ProductID, it.Requested, it.Available)
}

// Service содержит бизнес-логику магазина.
type Service struct {
	repo          Repository
	assembler     *checkout.Assembler
	notifications notification.Store
	courier       Courier
	logger        *zap.Logger
	now           func() time.Time
}

// NewService создаёт сервис. courier может быть nil: тогда передача заказов в NOEST недоступна.
func NewService(repo Repository, assembler *checkout.Assembler, notifications notification.Store, courier Courier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifications == nil {
		notifications = notification.NewMemoryStore(notification.DefaultCapacity)
	}
	return &Service{
		repo:          repo,
		assembler:     assembler,
		notifications: notifications,
		courier:       courier,
		logger:        logger,
		now:           time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// PlaceOrder оформляет заказ: загружает актуальные цены, собирает заказ, сохраняет его
// и уведомляет администратора. Повторных попыток при сбое записи не делает.
func (s *Service) PlaceOrder(ctx context.Context, lines []CartLine, form checkout.CustomerForm) (*model.Order, error) {
	if len(lines) == 0 {
		return nil, checkout.ErrEmptyCart
	}

	items, err := s.resolveCart(ctx, lines)
	if err != nil {
		return nil, err
	}

	order, err := s.assembler.Assemble(items, form)
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, model.NotificationNewOrder, "Nouvelle commande",
		fmt.Sprintf("%s (%s), %s DA", stored.CustomerName, stored.WilayaName, stored.GrandTotal.StringFixed(2)))
	s.checkLowStock(ctx, items)

	return stored, nil
}

func (s *Service) resolveCart(ctx context.Context, lines []CartLine) ([]model.CartItem, error) {
	quantities := make(map[int64]int, len(lines))
	order := make([]int64, 0, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, &checkout.ValidationError{Field: "quantity", Reason: "must be at least 1"}
		}
		if _, seen := quantities[l.ProductID]; !seen {
			order = append(order, l.ProductID)
		}
		quantities[l.ProductID] += l.Quantity
	}

	products, err := s.repo.GetProductsByIDs(ctx, order)
	if err != nil {
		return nil, err
	}

	var short []OutOfStockItem
	items := make([]model.CartItem, 0, len(order))
	for _, id := range order {
		p, ok := products[id]
		if !ok {
			return nil, fmt.Errorf("%w: %d", repository.ErrProductNotFound, id)
		}
		if quantities[id] > p.Stock {
			short = append(short, OutOfStockItem{ProductID: id, Requested: quantities[id], Available: p.Stock})
			continue
		}
		items = append(items, model.CartItem{Product: p, Quantity: quantities[id]})
	}

	if len(short) > 0 {
		return nil, &OutOfStockError{Items: short}
	}
	return items, nil
}

func (s *Service) checkLowStock(ctx context.Context, items []model.CartItem) {
	for _, it := range items {
		left := it.Product.Stock - it.Quantity
		if left > LowStockThreshold {
			continue
		}
		s.notify(ctx, model.NotificationLowStock, "Stock faible",
			fmt.Sprintf("%s : %d restant(s)", it.Product.Name, max(left, 0)))
	}
}

func (s *Service) notify(ctx context.Context, kind model.NotificationType, title, message string) {
	n := model.Notification{
		ID:        uuid.NewString(),
		Type:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.notifications.Add(ctx, n); err != nil {
		s.logger.Warn("store notification", zap.Error(err), zap.String("type", string(kind)))
	}
}

// ListOrders возвращает заказы, начиная с самых новых.
func (s *Service) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, error) {
	return s.repo.ListOrders(ctx, filter)
}

// GetOrder возвращает заказ по идентификатору.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

// UpdateOrderStatus переводит заказ в новый статус.
func (s *Service) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to model.OrderStatus) (*model.Order, error) {
	if !to.Valid() {
		return nil, &checkout.ValidationError{Field: "status", Reason: "has unsupported value"}
	}

	order, err := s.repo.UpdateOrderStatus(ctx, id, to)
	if err != nil {
		return nil, err
	}

	s.notify(ctx, model.NotificationStatusUpdate, "Statut mis à jour",
		fmt.Sprintf("Commande %s : %s", shortID(order.ID), order.Status))
	return order, nil
}

// DispatchOrder передаёт сохранённый заказ в NOEST через ретранслятор и возвращает его ответ.
// Статус заказа не меняется: решение принимает администратор по ответу.
func (s *Service) DispatchOrder(ctx context.Context, id uuid.UUID, stationCode string) (*relay.Response, error) {
	if s.courier == nil {
		return nil, errors.New("courier relay is not configured")
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := s.courier.Do(ctx, CourierRequest(order, stationCode))
	if !resp.OK {
		s.logger.Info("noest rejected order",
			zap.String("order", order.ID.String()),
			zap.Int("status", resp.Status),
			zap.String("error", resp.Error),
		)
	}
	return &resp, nil
}

// CourierRequest строит запрос create_order из сохранённого заказа.
func CourierRequest(order *model.Order, stationCode string) relay.Request {
	stopDesk := int64(0)
	if order.DeliveryType == model.DeliveryDesk {
		stopDesk = 1
	}

	return relay.Request{
		Action:      relay.ActionCreateOrder,
		Client:      order.CustomerName,
		Phone:       order.Phone,
		Adresse:     order.Address,
		WilayaID:    relay.NumberOf(int64(order.WilayaCode)),
		Commune:     order.Commune,
		Montant:     relay.NumberFromString(order.GrandTotal.String()),
		Produit:     describeItems(order.Items),
		TypeID:      relay.NumberOf(1),
		StopDesk:    relay.NumberOf(stopDesk),
		StationCode: stationCode,
	}
}

func describeItems(items []model.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s x%d", it.ProductName, it.Quantity))
	}
	return strings.Join(parts, ", ")
}

func shortID(id uuid.UUID) string {
	return strings.ToUpper(id.String()[:8])
}

// ListProducts возвращает товары каталога.
func (s *Service) ListProducts(ctx context.Context, category model.Category) ([]model.Product, error) {
	if category != "" && !category.Valid() {
		return nil, &checkout.ValidationError{Field: "category", Reason: "has unsupported value"}
	}
	return s.repo.ListProducts(ctx, category)
}

// GetProduct возвращает товар по идентификатору.
func (s *Service) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// SaveProduct создаёт товар (ID == 0) или обновляет существующий.
func (s *Service) SaveProduct(ctx context.Context, p model.Product) (*model.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}

	if p.ID == 0 {
		return s.repo.CreateProduct(ctx, p)
	}
	if err := s.repo.UpdateProduct(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.GetProduct(ctx, p.ID)
}

// DeleteProduct удаляет товар.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

func validateProduct(p model.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", ErrInvalidProduct, p.Category)
	case p.Price.IsNegative():
		return fmt.Errorf("%w: negative price", ErrInvalidProduct)
	case p.Stock < 0:
		return fmt.Errorf("%w: negative stock", ErrInvalidProduct)
	}
	return nil
}

// Notifications возвращает уведомления, начиная с самых новых.
func (s *Service) Notifications(ctx context.Context) ([]model.Notification, error) {
	list, err := s.notifications.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return list, nil
}

// MarkNotificationRead отмечает уведомление прочитанным.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	return s.notifications.MarkRead(ctx, id)
}

// MarkAllNotificationsRead отмечает все уведомления прочитанными.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	return s.notifications.MarkAllRead(ctx)
}

// ClearNotifications удаляет все уведомления.
func (s *Service) ClearNotifications(ctx context.Context) error {
	return s.notifications.Clear(ctx)
}
