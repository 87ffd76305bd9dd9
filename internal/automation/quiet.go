package automation

import "time"

// QuietHours is a nightly window, in local wall-clock hours, during which
// automated messages are held back. Start > End wraps past midnight.
type QuietHours struct {
	Enabled bool
	Start   int
	End     int
}

// Contains reports whether the local hour falls inside the window.
func (q QuietHours) Contains(hour int) bool {
	if !q.Enabled || q.Start == q.End {
		return false
	}
	if q.Start > q.End {
		return hour >= q.Start || hour < q.End
	}
	return hour >= q.Start && hour < q.End
}

// Defer moves t out of the window. It steps forward an hour at a time in
// loc until the local hour is outside the window, then truncates to the
// top of that hour. Times already outside the window come back unchanged.
// The result is in UTC.
func (q QuietHours) Defer(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	if !q.Contains(local.Hour()) {
		return t.UTC()
	}
	for i := 0; i < 24 && q.Contains(local.Hour()); i++ {
		local = local.Add(time.Hour)
	}
	local = time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	return local.UTC()
}
