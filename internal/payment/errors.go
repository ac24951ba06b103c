package payment

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// isDuplicateErr detects unique-constraint violations across the gorm
// drivers in use (postgres via the error translator, sqlite by message).
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint failed")
}
