package reminder

import "time"

// suggestionHour is the fixed hour of day used for date-level suggestions.
const suggestionHour = 9

// Suggest proposes candidate reminder times for a task. With a due date it
// returns the day before at the fixed hour and one hour before the due time;
// without one it falls back to tomorrow at the fixed hour and one week from
// now. Pure function, no side effects.
func Suggest(taskDue time.Time, now time.Time) []time.Time {
	if taskDue.IsZero() {
		tomorrow := time.Date(now.Year(), now.Month(), now.Day(), suggestionHour, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
		return []time.Time{
			tomorrow,
			now.AddDate(0, 0, 7),
		}
	}

	dayBefore := time.Date(taskDue.Year(), taskDue.Month(), taskDue.Day(), suggestionHour, 0, 0, 0, taskDue.Location()).AddDate(0, 0, -1)
	return []time.Time{
		dayBefore,
		taskDue.Add(-time.Hour),
	}
}
