package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Действия, которые принимает ретранслятор.
const (
	ActionPing        = "ping"
	ActionDiagnose    = "diagnose"
	ActionCreateOrder = "create_order"
)

// Actions перечисляет поддерживаемые действия в порядке, в котором он отдаётся клиенту.
var Actions = []string{ActionPing, ActionDiagnose, ActionCreateOrder}

// Number принимает JSON-число или строку с числом. Проверка значения откладывается
// до разбора заказа, чтобы ошибка попала в ответ как ошибка поля.
type Number struct {
	raw string
	set bool
}

// NumberOf создаёт Number из целого значения.
func NumberOf(v int64) Number {
	return Number{raw: fmt.Sprint(v), set: true}
}

// NumberFromString создаёт Number из строкового представления.
func NumberFromString(s string) Number {
	return Number{raw: s, set: true}
}

// UnmarshalJSON реализует json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*n = Number{}
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Number{raw: strings.TrimSpace(s), set: true}
		return nil
	}

	*n = Number{raw: string(b), set: true}
	return nil
}

// MarshalJSON реализует json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.set {
		return []byte("null"), nil
	}
	return json.Marshal(n.raw)
}

// IsSet сообщает, было ли поле передано.
func (n Number) IsSet() bool {
	return n.set && n.raw != ""
}

// Ограничения на разбираемые числа. Длинные строки и большие показатели степени
// отклоняются до любых вычислений над значением.
const (
	maxNumberLen   = 32
	maxNumberScale = 18
)

var (
	minInt = decimal.NewFromInt(math.MinInt32)
	maxInt = decimal.NewFromInt(math.MaxInt32)
)

// Decimal разбирает значение как десятичное число.
func (n Number) Decimal() (decimal.Decimal, error) {
	if !n.IsSet() {
		return decimal.Zero, errors.New("is required")
	}
	if len(n.raw) > maxNumberLen {
		return decimal.Zero, errors.New("is out of range")
	}
	d, err := decimal.NewFromString(n.raw)
	if err != nil {
		return decimal.Zero, errors.New("must be a number")
	}
	if exp := d.Exponent(); exp > maxNumberScale || exp < -maxNumberScale {
		return decimal.Zero, errors.New("is out of range")
	}
	return d, nil
}

// Int разбирает значение как целое число в пределах int32.
func (n Number) Int() (int, error) {
	d, err := n.Decimal()
	if err != nil {
		return 0, err
	}
	if !d.IsInteger() {
		return 0, errors.New("must be an integer")
	}
	if d.LessThan(minInt) || d.GreaterThan(maxInt) {
		return 0, errors.New("is out of range")
	}
	return int(d.IntPart()), nil
}

// Request описывает тело POST-запроса к ретранслятору.
type Request struct {
	Action      string `json:"action"`
	Client      string `json:"client,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Adresse     string `json:"adresse,omitempty"`
	WilayaID    Number `json:"wilaya_id,omitzero"`
	Commune     string `json:"commune,omitempty"`
	Montant     Number `json:"montant,omitzero"`
	Produit     string `json:"produit,omitempty"`
	TypeID      Number `json:"type_id,omitzero"`
	StopDesk    Number `json:"stop_desk,omitzero"`
	StationCode string `json:"station_code,omitempty"`
}

// DecodeRequest читает запрос из тела. Пустое тело даёт запрос без действия.
func DecodeRequest(r io.Reader) (Request, error) {
	var req Request

	body, err := io.ReadAll(r)
	if err != nil {
		return req, fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return req, nil
	}

	if err := json.Unmarshal(body, &req); err != nil {
		return req, fmt.Errorf("decode body: %w", err)
	}
	req.Action = strings.TrimSpace(req.Action)
	return req, nil
}
