package models

import (
	"strings"

	"gorm.io/gorm"
)

const (
	RecurrenceMonthly   = "monthly"
	RecurrenceQuarterly = "quarterly"
	RecurrenceYearly    = "yearly"
)

type FixedCost struct {
	gorm.Model
	Name       string  `gorm:"not null" json:"name"`
	Category   string  `json:"category"`
	Value      float64 `gorm:"not null" json:"value"`
	Recurrence string  `gorm:"not null" json:"recurrence"`
	IsActive   bool    `gorm:"not null" json:"is_active"`
}

// ValidRecurrence reports whether the value is one of the supported
// recurrence intervals.
func ValidRecurrence(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case RecurrenceMonthly, RecurrenceQuarterly, RecurrenceYearly:
		return true
	}
	return false
}

// MonthlyValue normalizes the cost to a monthly figure: quarterly costs are
// spread over three months, yearly costs over twelve.
func (c FixedCost) MonthlyValue() float64 {
	switch strings.ToLower(strings.TrimSpace(c.Recurrence)) {
	case RecurrenceQuarterly:
		return c.Value / 3
	case RecurrenceYearly:
		return c.Value / 12
	default:
		return c.Value
	}
}
