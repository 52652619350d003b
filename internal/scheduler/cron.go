// Package scheduler runs the periodic jobs of the library: the overdue
// reminder scan and the retention cleanup. Both are independent of the HTTP
// layer and stop with the context passed to Start.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

func newCron() *cron.Cron {
	return cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
}

// ValidateSchedule checks a five-field cron expression or descriptor such as @hourly.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// DescribeSchedule returns a human-readable description of a cron schedule.
func DescribeSchedule(schedule string) string {
	switch schedule {
	case "0 * * * *", "@hourly":
		return "Every hour at :00"
	case "*/15 * * * *":
		return "Every 15 minutes"
	case "*/30 * * * *":
		return "Every 30 minutes"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *", "@daily", "@midnight":
		return "Daily at midnight"
	case "30 3 * * *":
		return "Daily at 03:30"
	default:
		return "Custom schedule: " + schedule
	}
}

// NextRun returns the first activation of the schedule after from.
func NextRun(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
