package utils

import (
	"errors"
	"fmt"
	"strings"
)

// validator.go - валидация данных
//
// Проверка адресов (base58), причин блокировки и числовых параметров.
// Возвращает error с описанием проблемы или nil.

var (
	ErrInvalidAddress    = errors.New("invalid base58 address")
	ErrReasonTooLong     = errors.New("reason is too long")
	ErrInvalidPercentage = errors.New("percentage must be within [0, 100]")
	ErrNotPositive       = errors.New("value must be positive")
)

const (
	base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

	// Публичный ключ 32 байта кодируется в 32-44 символа base58
	minAddressLen = 32
	maxAddressLen = 44

	MaxReasonLen = 256
)

// ValidateAddress проверяет, что строка похожа на base58-адрес (mint, кошелёк)
func ValidateAddress(addr string) error {
	if len(addr) < minAddressLen || len(addr) > maxAddressLen {
		return fmt.Errorf("%w: length %d not in [%d, %d]", ErrInvalidAddress, len(addr), minAddressLen, maxAddressLen)
	}
	for i, r := range addr {
		if !strings.ContainsRune(base58Alphabet, r) {
			return fmt.Errorf("%w: invalid character %q at %d", ErrInvalidAddress, r, i)
		}
	}
	return nil
}

// IsValidAddress - bool-версия ValidateAddress
func IsValidAddress(addr string) bool {
	return ValidateAddress(addr) == nil
}

// ValidateReason проверяет длину пользовательской заметки
func ValidateReason(reason string) error {
	if len(reason) > MaxReasonLen {
		return fmt.Errorf("%w: %d > %d", ErrReasonTooLong, len(reason), MaxReasonLen)
	}
	return nil
}

// ValidatePercentage проверяет значение в процентах [0, 100]
func ValidatePercentage(v float64) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidPercentage, v)
	}
	return nil
}

// ValidatePositive проверяет, что значение > 0
func ValidatePositive(v float64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %v", ErrNotPositive, v)
	}
	return nil
}

// ============================================================
// ValidationErrors - накопитель ошибок валидации
// ============================================================

// FieldError - ошибка конкретного поля
type FieldError struct {
	Field   string
	Message string
}

// ValidationErrors - список ошибок валидации
type ValidationErrors []FieldError

// Add добавляет ошибку поля
func (v *ValidationErrors) Add(field, message string) {
	*v = append(*v, FieldError{Field: field, Message: message})
}

// AddError добавляет ошибку, если она не nil
func (v *ValidationErrors) AddError(field string, err error) {
	if err != nil {
		v.Add(field, err.Error())
	}
}

// HasErrors возвращает true, если есть ошибки
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Error реализует интерфейс error
func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return strings.Join(parts, "; ")
}
