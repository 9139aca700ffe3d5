package models

import (
	"time"

	"gorm.io/gorm"
)

// WorkConfiguration is a singleton describing the weekly work schedule used
// to allocate fixed costs across production hours.
type WorkConfiguration struct {
	gorm.Model
	Monday      bool    `gorm:"not null" json:"monday"`
	Tuesday     bool    `gorm:"not null" json:"tuesday"`
	Wednesday   bool    `gorm:"not null" json:"wednesday"`
	Thursday    bool    `gorm:"not null" json:"thursday"`
	Friday      bool    `gorm:"not null" json:"friday"`
	Saturday    bool    `gorm:"not null" json:"saturday"`
	Sunday      bool    `gorm:"not null" json:"sunday"`
	HoursPerDay float64 `gorm:"not null" json:"hours_per_day"`
}

// DefaultWorkConfiguration is the schedule synthesized when no configuration
// row exists: Monday through Friday, eight hours a day.
func DefaultWorkConfiguration() WorkConfiguration {
	return WorkConfiguration{
		Monday:      true,
		Tuesday:     true,
		Wednesday:   true,
		Thursday:    true,
		Friday:      true,
		HoursPerDay: 8,
	}
}

func (c WorkConfiguration) worked(day time.Weekday) bool {
	switch day {
	case time.Monday:
		return c.Monday
	case time.Tuesday:
		return c.Tuesday
	case time.Wednesday:
		return c.Wednesday
	case time.Thursday:
		return c.Thursday
	case time.Friday:
		return c.Friday
	case time.Saturday:
		return c.Saturday
	default:
		return c.Sunday
	}
}

// AnnualWorkDays counts the worked calendar days in the given year,
// respecting leap years.
func (c WorkConfiguration) AnnualWorkDays(year int) int {
	days := 0
	for d := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC); d.Year() == year; d = d.AddDate(0, 0, 1) {
		if c.worked(d.Weekday()) {
			days++
		}
	}
	return days
}

// MonthlyWorkDays averages the year's worked days across twelve months.
func (c WorkConfiguration) MonthlyWorkDays(year int) float64 {
	return float64(c.AnnualWorkDays(year)) / 12
}

// MonthlyWorkHours is the average number of worked hours in a month of the
// given year.
func (c WorkConfiguration) MonthlyWorkHours(year int) float64 {
	if c.HoursPerDay <= 0 {
		return 0
	}
	return c.MonthlyWorkDays(year) * c.HoursPerDay
}
