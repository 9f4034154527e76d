// Package shipping содержит справочник тарифов доставки по вилайям.
package shipping

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/schoolshop/internal/model"
)

// UnknownWilayaError возвращается, если для кода вилайи нет тарифа.
type UnknownWilayaError struct {
	Code int
}

func (e *UnknownWilayaError) Error() string {
	return fmt.Sprintf("unknown wilaya code: %d", e.Code)
}

// Table хранит неизменяемый справочник тарифов, индексированный по коду вилайи.
type Table struct {
	byCode map[int]model.WilayaShipping
}

// NewTable строит справочник из списка тарифов. Повторяющийся код считается ошибкой.
func NewTable(entries []model.WilayaShipping) (*Table, error) {
	byCode := make(map[int]model.WilayaShipping, len(entries))
	for _, e := range entries {
		if _, ok := byCode[e.Code]; ok {
			return nil, fmt.Errorf("duplicate wilaya code: %d", e.Code)
		}
		byCode[e.Code] = e
	}
	return &Table{byCode: byCode}, nil
}

// Lookup возвращает тариф по коду вилайи.
func (t *Table) Lookup(code int) (model.WilayaShipping, error) {
	w, ok := t.byCode[code]
	if !ok {
		return model.WilayaShipping{}, &UnknownWilayaError{Code: code}
	}
	return w, nil
}

// Fee возвращает стоимость доставки в вилайю для выбранного способа доставки.
func (t *Table) Fee(code int, delivery model.DeliveryType) (decimal.Decimal, error) {
	w, err := t.Lookup(code)
	if err != nil {
		return decimal.Zero, err
	}

	switch delivery {
	case model.DeliveryDesk:
		return w.DeskFee, nil
	case model.DeliveryHome:
		return w.HomeFee, nil
	default:
		return decimal.Zero, fmt.Errorf("unknown delivery type: %q", delivery)
	}
}

// All возвращает все тарифы, упорядоченные по коду.
func (t *Table) All() []model.WilayaShipping {
	res := make([]model.WilayaShipping, 0, len(t.byCode))
	for _, w := range t.byCode {
		res = append(res, w)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Code < res[j].Code })
	return res
}

var defaultTable = mustTable(defaultRates)

// Default возвращает встроенный справочник тарифов.
func Default() *Table {
	return defaultTable
}

func mustTable(rates []rate) *Table {
	entries := make([]model.WilayaShipping, 0, len(rates))
	for _, r := range rates {
		entries = append(entries, model.WilayaShipping{
			Code:    r.code,
			Name:    r.name,
			DeskFee: decimal.NewFromInt(r.desk),
			HomeFee: decimal.NewFromInt(r.home),
		})
	}

	t, err := NewTable(entries)
	if err != nil {
		panic(err)
	}
	return t
}
