// Package calendar computes the recurring weekly trading window for the
// instrument's exchange. The week opens on Sunday evening and closes on
// Friday afternoon, with a fixed daily maintenance break in between, all
// in the exchange's local timezone.
package calendar

import (
	"time"

	"spotwatch/internal/domain/models"
)

// Config holds the weekly schedule in exchange-local hours.
type Config struct {
	Location       *time.Location
	OpenHour       int // Sunday, local
	CloseHour      int // following Friday, local
	BreakStartHour int // daily, local
	BreakEndHour   int // daily, local
}

// Calculator derives the current week's TradingWindow from an instant.
// It is pure and total: any input instant maps to exactly one window.
type Calculator struct {
	cfg Config
}

// New creates a Calculator. Location must be non-nil.
func New(cfg Config) *Calculator {
	return &Calculator{cfg: cfg}
}

// CurrentWindow returns the trading window of the week containing now.
// All instants are built with time.Date in the exchange location, so the
// UTC offset is resolved per-date and daylight-saving transitions are
// handled correctly. A fixed offset computed at startup would not be.
func (c *Calculator) CurrentWindow(now time.Time) models.TradingWindow {
	local := now.In(c.cfg.Location)

	// Walk back to the most recent Sunday, the calendar boundary.
	day := local
	for day.Weekday() != time.Sunday {
		day = day.AddDate(0, 0, -1)
	}

	opens := c.at(day, c.cfg.OpenHour)
	closes := c.at(day.AddDate(0, 0, 5), c.cfg.CloseHour)

	var breaks []models.BreakWindow
	for i := 0; i <= 5; i++ {
		d := day.AddDate(0, 0, i)
		start := c.at(d, c.cfg.BreakStartHour)
		end := c.at(d, c.cfg.BreakEndHour)
		// Breaks must fall strictly inside the open window; the Sunday
		// pre-open and Friday post-close slots drop out here.
		if start.After(opens) && end.Before(closes) {
			breaks = append(breaks, models.BreakWindow{Start: start, End: end})
		}
	}

	return models.TradingWindow{OpensAt: opens, ClosesAt: closes, Breaks: breaks}
}

func (c *Calculator) at(day time.Time, hour int) time.Time {
	y, m, d := day.In(c.cfg.Location).Date()
	return time.Date(y, m, d, hour, 0, 0, 0, c.cfg.Location)
}
