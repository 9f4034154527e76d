// Package checkout собирает заказ из корзины и данных покупателя.
package checkout

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/schoolshop/internal/model"
	"github.com/mmeshcher/schoolshop/internal/shipping"
	"github.com/mmeshcher/schoolshop/internal/validation"
)

// CustomerForm содержит данные покупателя из формы оформления заказа.
type CustomerForm struct {
	Name         string             `json:"name" validate:"required"`
	Phone        string             `json:"phone" validate:"required,dzphone"`
	WilayaCode   int                `json:"wilaya"`
	Commune      string             `json:"commune" validate:"required"`
	Address      string             `json:"address" validate:"required"`
	DeliveryType model.DeliveryType `json:"delivery_type" validate:"required,oneof=desk home"`
}

// Assembler превращает корзину и форму в заказ. Не выполняет ввода-вывода.
type Assembler struct {
	rates    *shipping.Table
	validate *validator.Validate
	now      func() time.Time
	newID    func() uuid.UUID
}

// Option настраивает Assembler.
type Option func(*Assembler)

// WithClock задаёт источник времени для поля CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// WithIDGenerator задаёт генератор идентификаторов заказа.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(a *Assembler) { a.newID = newID }
}

// NewAssembler создаёт сборщик заказов со справочником тарифов rates.
func NewAssembler(rates *shipping.Table, opts ...Option) *Assembler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	if err := validation.RegisterPhone(v); err != nil {
		panic(err)
	}

	a := &Assembler{
		rates:    rates,
		validate: v,
		now:      time.Now,
		newID:    uuid.New,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble строит заказ в статусе pending. Цены копируются из позиций корзины,
// поэтому последующие изменения каталога на заказ не влияют.
func (a *Assembler) Assemble(items []model.CartItem, form CustomerForm) (*model.Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	form = normalize(form)
	if err := a.validateForm(form); err != nil {
		return nil, err
	}

	lines := make([]model.OrderItem, 0, len(items))
	subtotal := decimal.Zero
	for _, it := range items {
		if it.Quantity < 1 {
			return nil, &ValidationError{Field: "quantity", Reason: "must be at least 1"}
		}

		line := model.OrderItem{
			ProductName: it.Product.Name,
			Quantity:    it.Quantity,
			UnitPrice:   it.Product.Price,
		}
		if it.Product.ID != 0 {
			id := it.Product.ID
			line.ProductID = &id
		}

		subtotal = subtotal.Add(line.LineTotal())
		lines = append(lines, line)
	}

	wilaya, err := a.rates.Lookup(form.WilayaCode)
	if err != nil {
		return nil, err
	}

	fee, err := a.rates.Fee(wilaya.Code, form.DeliveryType)
	if err != nil {
		return nil, err
	}

	return &model.Order{
		ID:           a.newID(),
		CustomerName: form.Name,
		Phone:        form.Phone,
		WilayaCode:   wilaya.Code,
		WilayaName:   wilaya.Name,
		Commune:      form.Commune,
		Address:      form.Address,
		Items:        lines,
		Subtotal:     subtotal,
		ShippingFee:  fee,
		GrandTotal:   subtotal.Add(fee),
		Status:       model.OrderStatusPending,
		DeliveryType: form.DeliveryType,
		CreatedAt:    a.now().UTC(),
	}, nil
}

func (a *Assembler) validateForm(form CustomerForm) error {
	err := a.validate.Struct(form)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		reason := "is required"
		if fe.Tag() != "required" {
			reason = "has unsupported value"
		}
		return &ValidationError{Field: fe.Field(), Reason: reason}
	}
	return err
}

func normalize(form CustomerForm) CustomerForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Commune = strings.TrimSpace(form.Commune)
	form.Address = strings.TrimSpace(form.Address)
	form.DeliveryType = model.DeliveryType(strings.ToLower(strings.TrimSpace(string(form.DeliveryType))))
	return form
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return f.Name
	}
	return name
}
