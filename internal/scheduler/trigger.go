package scheduler

import "time"

// Trigger computes when a task fires next.
type Trigger interface {
	Next(after time.Time) time.Time
	String() string
}

// DailyAt fires once a day at Hour:Minute in Location (time.Local when nil).
type DailyAt struct {
	Hour     int
	Minute   int
	Location *time.Location
}

func (d DailyAt) Next(after time.Time) time.Time {
	loc := d.Location
	if loc == nil {
		loc = time.Local
	}
	t := after.In(loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.Hour, d.Minute, 0, 0, loc)
	if !next.After(t) {
		next = time.Date(t.Year(), t.Month(), t.Day()+1, d.Hour, d.Minute, 0, 0, loc)
	}
	return next
}

func (d DailyAt) String() string {
	loc := "Local"
	if d.Location != nil {
		loc = d.Location.String()
	}
	return time.Date(0, 1, 1, d.Hour, d.Minute, 0, 0, time.UTC).Format("15:04") + " " + loc
}

// Every fires a fixed interval after the previous run finished.
type Every struct {
	Interval time.Duration
}

func (e Every) Next(after time.Time) time.Time {
	return after.Add(e.Interval)
}

func (e Every) String() string {
	return "every " + e.Interval.String()
}
