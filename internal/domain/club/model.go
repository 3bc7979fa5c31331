package club

import (
	"fmt"
	"strings"
	"time"
)

// Club is an organization that fields one or more teams. Clubs are
// soft-deleted by flipping IsActive; teams keep their club reference.
type Club struct {
	ID          int64
	Name        string
	City        string
	Website     string
	Description string
	ProAcademy  bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c Club) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("club name is required")
	}
	return nil
}

type ListFilter struct {
	IncludeInactive bool
	Limit           int
	Offset          int
}
