package scheduler

import (
	"fmt"
	"sort"
	"strings"
	"time"

	coreconfig "github.com/m3rciful/goldbot/core/config"
)

// Schedule yields trigger times.
type Schedule interface {
	// Next returns the first trigger strictly after t.
	Next(t time.Time) time.Time
	String() string
}

type clock struct{ hour, minute int }

type daily struct {
	times []clock
	loc   *time.Location
}

// Daily fires at each "HH:MM" wall-clock time in loc, every day.
func Daily(times []string, loc *time.Location) (Schedule, error) {
	if len(times) == 0 {
		return nil, fmt.Errorf("daily schedule needs at least one time")
	}
	if loc == nil {
		loc = time.Local
	}
	d := &daily{loc: loc}
	for _, raw := range times {
		t, err := time.Parse("15:04", strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid time %q, expected HH:MM", raw)
		}
		d.times = append(d.times, clock{t.Hour(), t.Minute()})
	}
	sort.Slice(d.times, func(i, j int) bool {
		if d.times[i].hour != d.times[j].hour {
			return d.times[i].hour < d.times[j].hour
		}
		return d.times[i].minute < d.times[j].minute
	})
	return d, nil
}

func (d *daily) Next(t time.Time) time.Time {
	local := t.In(d.loc)
	for day := 0; day < 2; day++ {
		y, m, dd := local.AddDate(0, 0, day).Date()
		for _, c := range d.times {
			at := time.Date(y, m, dd, c.hour, c.minute, 0, 0, d.loc)
			if at.After(t) {
				return at
			}
		}
	}
	// unreachable with at least one time per day
	return t.Add(24 * time.Hour)
}

func (d *daily) String() string {
	parts := make([]string, 0, len(d.times))
	for _, c := range d.times {
		parts = append(parts, fmt.Sprintf("%02d:%02d", c.hour, c.minute))
	}
	return "daily " + strings.Join(parts, ",") + " " + d.loc.String()
}

type every struct{ d time.Duration }

// Every fires at a fixed interval measured from the previous trigger.
func Every(d time.Duration) (Schedule, error) {
	if d <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", d)
	}
	return every{d}, nil
}

func (e every) Next(t time.Time) time.Time { return t.Add(e.d) }

func (e every) String() string { return "every " + e.d.String() }

// FromConfig builds a schedule from normalized config; times win over the interval.
func FromConfig(cfg coreconfig.ScheduleConfig) (Schedule, error) {
	if len(cfg.Times) > 0 {
		loc := time.Local
		if cfg.Timezone != "" {
			var err error
			if loc, err = time.LoadLocation(cfg.Timezone); err != nil {
				return nil, err
			}
		}
		return Daily(cfg.Times, loc)
	}
	return Every(time.Duration(cfg.IntervalSeconds) * time.Second)
}
