package season

import (
	"fmt"
	"strings"
	"time"
)

// Season is reference data carrying a date interval, e.g. "2025-26".
type Season struct {
	ID        int64
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

func (s Season) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("season name is required")
	}
	if !s.EndDate.After(s.StartDate) {
		return fmt.Errorf("season end date must be after start date")
	}
	return nil
}
