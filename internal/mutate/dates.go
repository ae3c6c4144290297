package mutate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"canvas-cli/internal/model"
)

const dateLayout = "2006-01-02"

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reInN      = regexp.MustCompile(`^in (\d{1,3}) (day|days|week|weeks)$`)
)

// NormalizeDate turns raw into a YYYY-MM-DD string. ISO dates pass through
// untouched; relative words resolve against now; anything else goes through
// generic parsing and is read back in UTC. ok is false when nothing parses.
func NormalizeDate(raw string, now time.Time) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if reDateOnly.MatchString(s) {
		if _, err := time.Parse(dateLayout, s); err == nil {
			return s, true
		}
		return "", false
	}
	today := now.UTC().Truncate(24 * time.Hour)
	if d, ok := relativeDate(strings.ToLower(s), today); ok {
		return d.Format(dateLayout), true
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return "", false
	}
	return t.UTC().Format(dateLayout), true
}

func relativeDate(s string, today time.Time) (time.Time, bool) {
	switch s {
	case "today":
		return today, true
	case "tomorrow":
		return today.AddDate(0, 0, 1), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	}
	if m := reInN.FindStringSubmatch(s); m != nil {
		n, _ := strconv.Atoi(m[1])
		if strings.HasPrefix(m[2], "week") {
			n *= 7
		}
		return today.AddDate(0, 0, n), true
	}
	next := false
	if rest, ok := strings.CutPrefix(s, "next "); ok {
		s, next = rest, true
	}
	wd, ok := parseWeekday(s)
	if !ok {
		return time.Time{}, false
	}
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	if next && delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta), true
}

func parseWeekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// SetDate stores the normalized date into project.field3. Unparseable input
// leaves the prior value in place.
func SetDate(d model.Data, raw string, now time.Time) model.Data {
	p, ok := d.(model.ProjectData)
	if !ok {
		return d
	}
	date, ok := NormalizeDate(raw, now)
	if !ok {
		return d
	}
	p.Field3 = date
	return p
}

func ClearDate(d model.Data) model.Data {
	p, ok := d.(model.ProjectData)
	if !ok {
		return d
	}
	p.Field3 = ""
	return p
}
