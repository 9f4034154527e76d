// Package model содержит доменные сущности магазина школьных принадлежностей.
package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Category описывает раздел каталога по школьной ступени.
type Category string

const (
	CategoryPreparatory Category = "preparatory"
	CategoryPrimary     Category = "primary"
	CategoryMiddle      Category = "middle"
)

// Valid сообщает, относится ли значение к известной категории.
func (c Category) Valid() bool {
	switch c {
	case CategoryPreparatory, CategoryPrimary, CategoryMiddle:
		return true
	}
	return false
}

// Product представляет товар каталога.
type Product struct {
	ID          int64
	Name        string
	Category    Category
	Price       decimal.Decimal
	Images      []string
	Description string
	Benefits    []string
	Stock       int
	Sales       int
	CreatedAt   time.Time
}

// CartItem представляет позицию корзины: копию товара и количество.
type CartItem struct {
	Product  Product
	Quantity int
}

// DeliveryType описывает способ доставки заказа.
type DeliveryType string

const (
	DeliveryDesk DeliveryType = "desk"
	DeliveryHome DeliveryType = "home"
)

// Valid сообщает, относится ли значение к известному способу доставки.
func (d DeliveryType) Valid() bool {
	return d == DeliveryDesk || d == DeliveryHome
}

// WilayaShipping содержит тарифы доставки для одной вилайи.
type WilayaShipping struct {
	Code    int             `json:"code"`
	Name    string          `json:"name"`
	DeskFee decimal.Decimal `json:"desk_fee"`
	HomeFee decimal.Decimal `json:"home_fee"`
}

// OrderItem описывает строку заказа. Цена фиксируется на момент оформления.
type OrderItem struct {
	ProductID   *int64
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// LineTotal возвращает стоимость строки.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Order описывает оформленный заказ покупателя.
type Order struct {
	ID           uuid.UUID
	CustomerName string
	Phone        string
	WilayaCode   int
	WilayaName   string
	Commune      string
	Address      string
	Items        []OrderItem
	Subtotal     decimal.Decimal
	ShippingFee  decimal.Decimal
	GrandTotal   decimal.Decimal
	Status       OrderStatus
	DeliveryType DeliveryType
	CreatedAt    time.Time
}

// NotificationType описывает вид уведомления администратора.
type NotificationType string

const (
	NotificationNewOrder     NotificationType = "new_order"
	NotificationLowStock     NotificationType = "low_stock"
	NotificationStatusUpdate NotificationType = "status_update"
)

// Notification описывает событие для панели администратора.
type Notification struct {
	ID        string           `json:"id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"created_at"`
	Read      bool             `json:"read"`
}
