package relay

import (
	"encoding/json"
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mmeshcher/schoolshop/internal/noest"
)

// ValidationError перечисляет поля запроса create_order, не прошедшие проверку.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+" "+e.Fields[name])
	}
	return "invalid create_order request: " + strings.Join(parts, ", ")
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// buildOrder превращает запрос в типизированное тело для NOEST. Ничего не приводит молча:
// нечисловые значения и пропуски возвращаются как ошибки полей.
func buildOrder(v *validator.Validate, req Request, creds noest.Credentials) (noest.Order, error) {
	fields := make(map[string]string)

	intField := func(name string, n Number) int {
		val, err := n.Int()
		if err != nil {
			fields[name] = err.Error()
		}
		return val
	}

	order := noest.Order{
		Credentials: creds,
		Client:      strings.TrimSpace(req.Client),
		Phone:       strings.TrimSpace(req.Phone),
		Adresse:     strings.TrimSpace(req.Adresse),
		WilayaID:    intField("wilaya_id", req.WilayaID),
		Commune:     strings.TrimSpace(req.Commune),
		Produit:     strings.TrimSpace(req.Produit),
		TypeID:      intField("type_id", req.TypeID),
		StopDesk:    intField("stop_desk", req.StopDesk),
		StationCode: strings.TrimSpace(req.StationCode),
	}

	amount, err := req.Montant.Decimal()
	switch {
	case err != nil:
		fields["montant"] = err.Error()
	case amount.IsNegative():
		fields["montant"] = "must not be negative"
	default:
		order.Montant = json.Number(amount.String())
	}

	if err := v.Struct(order); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return noest.Order{}, err
		}
		for _, fe := range verrs {
			if _, seen := fields[fe.Field()]; seen {
				continue
			}
			fields[fe.Field()] = describe(fe)
		}
	}

	if len(fields) > 0 {
		return noest.Order{}, &ValidationError{Fields: fields}
	}

	if order.StopDesk == 0 {
		order.StationCode = ""
	}
	return order, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "required_if":
		return "is required when stop_desk is 1"
	case "oneof":
		return "must be one of " + fe.Param()
	case "min", "max":
		return "is out of range"
	default:
		return "is invalid"
	}
}
