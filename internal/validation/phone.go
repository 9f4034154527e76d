// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// PhoneTag регистрируется в validator для полей с алжирским номером телефона.
const PhoneTag = "dzphone"

// NormalizePhone убирает разделители и приводит международный префикс +213 / 00213
// к национальному нулю.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for i, ch := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(ch):
			b.WriteRune(ch)
		case ch == '+' && i == 0:
			b.WriteRune(ch)
		case ch == ' ' || ch == '-' || ch == '.' || ch == '(' || ch == ')':
		default:
			return ""
		}
	}

	s := b.String()
	switch {
	case strings.HasPrefix(s, "+213"):
		s = "0" + s[len("+213"):]
	case strings.HasPrefix(s, "00213"):
		s = "0" + s[len("00213"):]
	}
	return s
}

// IsValidPhone проверяет алжирский номер: мобильный 05/06/07 и восемь цифр
// или стационарный из девяти цифр, начинающийся с нуля.
func IsValidPhone(phone string) bool {
	s := NormalizePhone(phone)
	if s == "" || s[0] != '0' {
		return false
	}
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return false
		}
	}

	switch len(s) {
	case 10:
		return s[1] == '5' || s[1] == '6' || s[1] == '7'
	case 9:
		return s[1] >= '2' && s[1] <= '4'
	default:
		return false
	}
}

// RegisterPhone добавляет проверку PhoneTag в v.
func RegisterPhone(v *validator.Validate) error {
	return v.RegisterValidation(PhoneTag, func(fl validator.FieldLevel) bool {
		return IsValidPhone(fl.Field().String())
	})
}
