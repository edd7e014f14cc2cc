// Package timecalc holds the pure duration arithmetic shared by panels and slots.
// All durations are whole minutes.
package timecalc

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrDurationMismatch     = errors.New("panel duration does not match its time window")
	ErrInsufficientCapacity = errors.New("panel duration cannot accommodate the requested slots")
)

// Totals are the aggregate durations of a panel.
type Totals struct {
	TotalSlotDuration int
	TotalGapDuration  int
	SlotGapDuration   int
}

// Window is a half-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Minutes() int {
	return DurationMinutes(w.Start, w.End)
}

func EndTime(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// DurationMinutes returns end-start rounded to the nearest minute.
func DurationMinutes(start, end time.Time) int {
	return int(math.Round(end.Sub(start).Minutes()))
}

func ValidatePanelWindow(start, end time.Time, panelDuration int) error {
	actual := DurationMinutes(start, end)
	if actual != panelDuration {
		return fmt.Errorf("%w: panel_duration is %d but the window spans %d minutes", ErrDurationMismatch, panelDuration, actual)
	}
	return nil
}

func GapTotal(slotCount, gap int) int {
	if slotCount <= 1 {
		return 0
	}
	return (slotCount - 1) * gap
}

func ComputeTotals(slotCount, slotDuration, gap int) Totals {
	totalSlot := slotCount * slotDuration
	totalGap := GapTotal(slotCount, gap)
	return Totals{
		TotalSlotDuration: totalSlot,
		TotalGapDuration:  totalGap,
		SlotGapDuration:   totalSlot + totalGap,
	}
}

// TotalsFromDurations is ComputeTotals for slots of differing lengths.
func TotalsFromDurations(durations []int, gap int) Totals {
	var totalSlot int
	for _, d := range durations {
		totalSlot += d
	}
	totalGap := GapTotal(len(durations), gap)
	return Totals{
		TotalSlotDuration: totalSlot,
		TotalGapDuration:  totalGap,
		SlotGapDuration:   totalSlot + totalGap,
	}
}

func AvailableTime(panelDuration, slotGapDuration int) (int, error) {
	available := panelDuration - slotGapDuration
	if available < 0 {
		return 0, fmt.Errorf("%w: slots and gaps need %d minutes, panel has %d", ErrInsufficientCapacity, slotGapDuration, panelDuration)
	}
	return available, nil
}

func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// Sequence lays out contiguous windows starting at start, one per duration, separated by gap.
func Sequence(start time.Time, durations []int, gap int) []Window {
	windows := make([]Window, 0, len(durations))
	cursor := start
	for _, d := range durations {
		end := EndTime(cursor, d)
		windows = append(windows, Window{Start: cursor, End: end})
		cursor = EndTime(end, gap)
	}
	return windows
}

// DayRange returns [date, date+1day) starting at midnight in date's location.
func DayRange(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, date.Location())
	return from, from.AddDate(0, 0, 1)
}
