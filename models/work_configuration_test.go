package models

import (
	"math"
	"testing"
)

func TestAnnualWorkDaysLeapYear(t *testing.T) {
	t.Parallel()

	everyDay := WorkConfiguration{
		Monday: true, Tuesday: true, Wednesday: true, Thursday: true,
		Friday: true, Saturday: true, Sunday: true,
		HoursPerDay: 8,
	}

	if got := everyDay.AnnualWorkDays(2023); got != 365 {
		t.Fatalf("AnnualWorkDays(2023) = %d, want 365", got)
	}
	if got := everyDay.AnnualWorkDays(2024); got != 366 {
		t.Fatalf("AnnualWorkDays(2024) = %d, want 366", got)
	}
}

func TestMonthlyWorkHoursWeekdaysOnly(t *testing.T) {
	t.Parallel()

	cfg := DefaultWorkConfiguration()

	// 2024 has 262 weekdays: 262/12 days a month at 8 hours each.
	want := 262.0 / 12 * 8
	if got := cfg.MonthlyWorkHours(2024); math.Abs(got-want) > 1e-9 {
		t.Fatalf("MonthlyWorkHours(2024) = %f, want %f", got, want)
	}
}

func TestMonthlyWorkHoursZeroSchedule(t *testing.T) {
	t.Parallel()

	cfg := WorkConfiguration{HoursPerDay: 0}
	if got := cfg.MonthlyWorkHours(2024); got != 0 {
		t.Fatalf("MonthlyWorkHours with zero hours per day = %f, want 0", got)
	}

	none := WorkConfiguration{HoursPerDay: 8}
	if got := none.MonthlyWorkHours(2024); got != 0 {
		t.Fatalf("MonthlyWorkHours with no worked days = %f, want 0", got)
	}
}

func TestFixedCostMonthlyValue(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		cost FixedCost
		want float64
	}{
		{"monthly", FixedCost{Value: 300, Recurrence: RecurrenceMonthly}, 300},
		{"quarterly", FixedCost{Value: 300, Recurrence: RecurrenceQuarterly}, 100},
		{"yearly", FixedCost{Value: 1200, Recurrence: RecurrenceYearly}, 100},
		{"unknown treated as monthly", FixedCost{Value: 50, Recurrence: "weekly"}, 50},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.cost.MonthlyValue(); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("MonthlyValue() = %f, want %f", got, tt.want)
			}
		})
	}
}
