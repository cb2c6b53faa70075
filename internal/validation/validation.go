package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Portfolio-Valuation-Engine/internal/apperrors"
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", apperrors.ErrInvalidUUID, id)
	}
	return nil
}

// ParseTime parses a date string in "2006-01-02" or RFC3339 format.
// A bare date is returned as UTC midnight.
func ParseTime(str string) (time.Time, error) {
	str = strings.TrimSpace(str)
	returnTime, err := time.Parse("2006-01-02", str)
	if err != nil {
		returnTime, err = time.Parse(time.RFC3339, str)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse date: %w", err)
		}
	}
	return returnTime.UTC(), nil
}

// ValidateDateRange checks that start is not after end when both are set.
func ValidateDateRange(start, end time.Time) error {
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return fmt.Errorf("%w: start %s is after end %s",
			apperrors.ErrInvalidDateRange, start.Format("2006-01-02"), end.Format("2006-01-02"))
	}
	return nil
}
