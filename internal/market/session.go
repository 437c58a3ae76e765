// Package market knows the US equity trading day: session
// classification, news age, and when each forecast horizon comes due.
package market

import (
	"time"

	"github.com/kvesu/Sentiment-Analyzer-With-3D-Graph/internal/models"
)

// Session boundaries in exchange-local minutes since midnight.
const (
	preMarketOpenMin = 4 * 60
	regularOpenMin   = 9*60 + 30
	regularCloseMin  = 16 * 60
	afterHoursEndMin = 20 * 60
)

// Calendar classifies instants against one exchange timezone.
type Calendar struct {
	loc *time.Location
}

// NewCalendar loads tz, defaulting to America/New_York. When the zone
// database is unavailable it falls back to a fixed EST offset, trading
// DST correctness for availability.
func NewCalendar(tz string) *Calendar {
	if tz == "" {
		tz = "America/New_York"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.FixedZone("EST", -5*3600)
	}
	return &Calendar{loc: loc}
}

// SessionAt labels the trading session containing t: pre_market
// 04:00-09:30, regular 09:30-16:00, after_hours 16:00-20:00 local, and
// closed for everything else including weekends.
func (c *Calendar) SessionAt(t time.Time) string {
	lt := t.In(c.loc)
	if isWeekend(lt) {
		return models.SessionClosed
	}
	mins := lt.Hour()*60 + lt.Minute()
	switch {
	case mins >= preMarketOpenMin && mins < regularOpenMin:
		return models.SessionPreMarket
	case mins >= regularOpenMin && mins < regularCloseMin:
		return models.SessionRegular
	case mins >= regularCloseMin && mins < afterHoursEndMin:
		return models.SessionAfterHours
	default:
		return models.SessionClosed
	}
}

// NextClose returns the first regular-session close strictly after t,
// skipping weekends.
func (c *Calendar) NextClose(t time.Time) time.Time {
	lt := t.In(c.loc)
	closeAt := time.Date(lt.Year(), lt.Month(), lt.Day(), 16, 0, 0, 0, c.loc)
	if !closeAt.After(lt) {
		closeAt = closeAt.AddDate(0, 0, 1)
	}
	for isWeekend(closeAt) {
		closeAt = closeAt.AddDate(0, 0, 1)
	}
	return closeAt.UTC()
}

// DueAt returns the instant at which a prediction issued at
// predictionTime can be measured: a fixed offset for the timed horizons,
// the next regular close for end-of-session.
func (c *Calendar) DueAt(h models.Horizon, predictionTime time.Time) time.Time {
	if d, ok := h.Duration(); ok {
		return predictionTime.Add(d)
	}
	return c.NextClose(predictionTime)
}

// NewsAgeMinutes is the age of a publication at now, clamped to zero
// when the publication timestamp sits in the future from clock skew.
func NewsAgeMinutes(published, now time.Time) float64 {
	age := now.Sub(published).Minutes()
	if age < 0 {
		return 0
	}
	return age
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
