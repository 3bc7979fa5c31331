package agegroup

import (
	"fmt"
	"strings"
)

// AgeGroup is reference data: "U12", "U14" and so on.
type AgeGroup struct {
	ID   int64
	Name string
}

func (a AgeGroup) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("age group name is required")
	}
	return nil
}
