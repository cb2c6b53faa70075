package validation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Rhymond/go-money"
)

// Error carries one message per invalid field.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

// ValidateCurrency checks that code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	if strings.TrimSpace(code) == "" {
		return fmt.Errorf("currency is required")
	}
	if money.GetCurrency(strings.ToUpper(code)) == nil {
		return fmt.Errorf("unknown currency: %s", code)
	}
	return nil
}
