package bill

import (
	"fmt"
	"time"
)

// NoDateMarker is displayed in place of a bill date that is not set
const NoDateMarker = "null"

// dateLayout is the canonical storage form of a bill date
const dateLayout = "2006-01-02"

var monthAbbrev = [...]string{
	time.January:   "Jan",
	time.February:  "Fév",
	time.March:     "Mar",
	time.April:     "Avr",
	time.May:       "Mai",
	time.June:      "Jui",
	time.July:      "Jui",
	time.August:    "Aoû",
	time.September: "Sep",
	time.October:   "Oct",
	time.November:  "Nov",
	time.December:  "Déc",
}

// FormatDate renders a YYYY-MM-DD date as "20 Jui. 23". If the input
// cannot be parsed it is returned unchanged along with the parse error.
func FormatDate(s string) (string, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return s, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return fmt.Sprintf("%d %s. %02d", t.Day(), monthAbbrev[t.Month()], t.Year()%100), nil
}

// DisplayDate returns the text shown for a bill date. A nil date skips
// formatting entirely and yields NoDateMarker.
func DisplayDate(date *string) (string, error) {
	if date == nil {
		return NoDateMarker, nil
	}
	return FormatDate(*date)
}

// FormatStatus returns the label shown for a review status
func FormatStatus(s Status) string {
	switch s {
	case StatusPending:
		return "En attente"
	case StatusAccepted:
		return "Accepté"
	case StatusRefused:
		return "Refused"
	default:
		return string(s)
	}
}
