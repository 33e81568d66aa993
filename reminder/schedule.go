package reminder

import "time"

// Stage is one reminder point in the schedule: customers created Days days
// ago (whole calendar day, store timezone) are due this stage's email today.
// The last stage is Terminal; after its email the configured disposition
// runs.
type Stage struct {
	Days     int
	Date     time.Time
	Terminal bool
}

// BuildSchedule computes the reminder stages for a single daily run:
// interval, 2*interval, ... count*interval days back from now. The job runs
// once a day, so each offset corresponds to exactly one calendar day and
// every account ages through every stage across consecutive runs.
//
// Returns nil when count or interval is not positive; the run has nothing
// to do then.
func BuildSchedule(now time.Time, loc *time.Location, count, interval int) []Stage {
	if count <= 0 || interval <= 0 {
		return nil
	}

	limit := count * interval
	var stages []Stage
	for days := interval; days <= limit; days += interval {
		stages = append(stages, Stage{
			Days:     days,
			Date:     now.In(loc).AddDate(0, 0, -days),
			Terminal: days == limit,
		})
	}
	return stages
}

// DayWindow widens a date to the full calendar day [00:00:00, 23:59:59] in
// the given timezone, for matching account creation timestamps.
func DayWindow(date time.Time, loc *time.Location) (time.Time, time.Time) {
	year, month, day := date.In(loc).Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, loc)
	end := time.Date(year, month, day, 23, 59, 59, 0, loc)
	return start, end
}
