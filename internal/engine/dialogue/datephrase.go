package dialogue

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// weekdays maps spoken weekday names to time.Weekday.
var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// numberWords maps small spoken numbers used in relative time phrases.
var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "fifteen": 15, "twenty": 20, "thirty": 30,
	"forty": 40, "fifty": 50, "sixty": 60, "ninety": 90,
}

// ResolveDatePhrase maps a spoken due-date phrase to a date at midnight local
// time. Recognised phrases: "today", "tomorrow", "next week", and weekday
// names (resolving to the next occurrence). Returns false for anything else,
// which leaves the field unset.
func ResolveDatePhrase(phrase string, now time.Time) (time.Time, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch {
	case strings.Contains(phrase, "today"):
		return midnight, true
	case strings.Contains(phrase, "tomorrow"):
		return midnight.AddDate(0, 0, 1), true
	case strings.Contains(phrase, "next week"):
		return midnight.AddDate(0, 0, 7), true
	}

	for name, wd := range weekdays {
		if !strings.Contains(phrase, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return midnight.AddDate(0, 0, ahead), true
	}

	return time.Time{}, false
}

var (
	relativeRe = regexp.MustCompile(`\bin\s+(\S+)\s+(minute|hour|day)s?\b`)
	atTimeRe   = regexp.MustCompile(`\bat\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\b`)
)

// ParseTimePhrase maps a spoken reminder-time phrase to a concrete time.
//
// Grammar:
//
//	"in N minutes|hours|days"            relative to now (digits or number words)
//	"tomorrow [at H[:MM] [am|pm]]"       tomorrow, 9:00 when no time is given
//	"today at H[:MM] [am|pm]"            today at the given time
//	"<weekday> [at H[:MM] [am|pm]]"      next occurrence of the weekday
//	"at H[:MM] [am|pm]"                  today, rolling to tomorrow if past
//	"tonight"                            today 20:00
//	"noon" / "midnight"                  12:00 / 0:00 of the next day
//
// Returns false when the phrase matches none of these; the dialogue re-asks.
func ParseTimePhrase(phrase string, now time.Time) (time.Time, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))

	if m := relativeRe.FindStringSubmatch(phrase); m != nil {
		n, ok := parseCount(m[1])
		if !ok {
			return time.Time{}, false
		}
		switch m[2] {
		case "minute":
			return now.Add(time.Duration(n) * time.Minute), true
		case "hour":
			return now.Add(time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, n), true
		}
	}

	base := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	hour, minute, hasTime := parseAtTime(phrase)
	switch {
	case strings.Contains(phrase, "noon") || strings.Contains(phrase, "midday"):
		hour, minute, hasTime = 12, 0, true
	case strings.Contains(phrase, "midnight"):
		hour, minute, hasTime = 0, 0, true
	case strings.Contains(phrase, "tonight"):
		hour, minute, hasTime = 20, 0, true
	}

	switch {
	case strings.Contains(phrase, "tomorrow"):
		if !hasTime {
			hour, minute = 9, 0
		}
		return base.AddDate(0, 0, 1).Add(clockOffset(hour, minute)), true

	case strings.Contains(phrase, "today"):
		if !hasTime {
			return time.Time{}, false
		}
		return base.Add(clockOffset(hour, minute)), true
	}

	for name, wd := range weekdays {
		if !strings.Contains(phrase, name) {
			continue
		}
		ahead := (int(wd) - int(now.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		if !hasTime {
			hour, minute = 9, 0
		}
		return base.AddDate(0, 0, ahead).Add(clockOffset(hour, minute)), true
	}

	if hasTime {
		t := base.Add(clockOffset(hour, minute))
		if !t.After(now) {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}

	return time.Time{}, false
}

// parseAtTime extracts an "at H[:MM] [am|pm]" clause.
func parseAtTime(phrase string) (hour, minute int, ok bool) {
	m := atTimeRe.FindStringSubmatch(phrase)
	if m == nil {
		return 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	switch m[3] {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	default:
		// No meridiem: hours 1–7 are assumed to mean the afternoon/evening,
		// matching how people phrase reminders ("at 5").
		if hour >= 1 && hour <= 7 {
			hour += 12
		}
	}
	if hour > 23 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

func parseCount(word string) (int, bool) {
	if n, err := strconv.Atoi(word); err == nil && n > 0 {
		return n, true
	}
	if n, ok := numberWords[word]; ok {
		return n, true
	}
	return 0, false
}

func clockOffset(hour, minute int) time.Duration {
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute
}
