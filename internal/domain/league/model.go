package league

import (
	"fmt"
	"strings"
)

// League is a competition umbrella (e.g. "MLS NEXT"); divisions partition it.
type League struct {
	ID       int64
	Name     string
	IsActive bool
}

func (l League) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("league name is required")
	}
	return nil
}
