package checkout

import (
	"errors"
	"fmt"
)

// ErrEmptyCart возвращается при попытке оформить пустую корзину.
var ErrEmptyCart = errors.New("cart is empty")

// ValidationError описывает отсутствующее или некорректное поле формы заказа.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid field %q", e.Field)
	}
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Reason)
}
