// Package discord builds and parses Discord timestamp markup (<t:UNIX:STYLE>)
// and renders the text a Discord client would show for it.
package discord

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidTimestamp is returned for input that is not timestamp markup.
	ErrInvalidTimestamp = errors.New("invalid discord timestamp")

	// ErrInvalidStyle is returned for a style flag outside t, T, d, D, f, F and R.
	ErrInvalidStyle = errors.New("invalid discord timestamp style")
)

// DefaultStyle is what Discord renders when the markup has no style flag.
const DefaultStyle = "f"

var markupPattern = regexp.MustCompile(`^<t:(-?\d+)(?::([tTdDfFR]))?>$`)

var styleLabels = map[string]string{
	"t": "Short Time",
	"T": "Long Time",
	"d": "Short Date",
	"D": "Long Date",
	"f": "Short Date/Time",
	"F": "Long Date/Time",
	"R": "Relative Time",
}

// Styles lists the style flags in Discord's picker order.
func Styles() []string {
	return []string{"t", "T", "d", "D", "f", "F", "R"}
}

// Timestamp is parsed markup.
type Timestamp struct {
	Unix  int64     `json:"unix" yaml:"unix"`
	Style string    `json:"style" yaml:"style"`
	Time  time.Time `json:"time" yaml:"time"`
}

// Formatted is one rendering of a moment.
type Formatted struct {
	Style   string `json:"style" yaml:"style"`
	Label   string `json:"label" yaml:"label"`
	Markup  string `json:"markup" yaml:"markup"`
	Preview string `json:"preview" yaml:"preview"`
}

func normalizeStyle(style string) (string, error) {
	if style == "" {
		return DefaultStyle, nil
	}
	if _, ok := styleLabels[style]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidStyle, style)
	}
	return style, nil
}

// Generate returns the markup for t in the given style. An empty style means DefaultStyle.
func Generate(t time.Time, style string) (string, error) {
	style, err := normalizeStyle(style)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("<t:%d:%s>", t.Unix(), style), nil
}

// Parse reads markup such as <t:1714144200:R>. Surrounding whitespace is ignored.
func Parse(s string) (Timestamp, error) {
	m := markupPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Timestamp{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, s)
	}
	unix, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Timestamp{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	style := m[2]
	if style == "" {
		style = DefaultStyle
	}
	return Timestamp{Unix: unix, Style: style, Time: time.Unix(unix, 0).UTC()}, nil
}

// Preview renders what an en-US Discord client shows for the timestamp in loc.
// now is the reference point for the relative style.
func Preview(unix int64, style string, loc *time.Location, now time.Time) (string, error) {
	style, err := normalizeStyle(style)
	if err != nil {
		return "", err
	}
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(unix, 0).In(loc)

	switch style {
	case "t":
		return t.Format("3:04 PM"), nil
	case "T":
		return t.Format("3:04:05 PM"), nil
	case "d":
		return t.Format("01/02/2006"), nil
	case "D":
		return t.Format("January 2, 2006"), nil
	case "f":
		return t.Format("January 2, 2006 3:04 PM"), nil
	case "F":
		return t.Format("Monday, January 2, 2006 3:04 PM"), nil
	default:
		return relative(t.Sub(now)), nil
	}
}

// All renders t in every style.
func All(t time.Time, loc *time.Location, now time.Time) []Formatted {
	out := make([]Formatted, 0, len(styleLabels))
	for _, style := range Styles() {
		markup, _ := Generate(t, style)
		preview, _ := Preview(t.Unix(), style, loc, now)
		out = append(out, Formatted{
			Style:   style,
			Label:   styleLabels[style],
			Markup:  markup,
			Preview: preview,
		})
	}
	return out
}

// Label returns the human name of a style flag.
func Label(style string) string {
	return styleLabels[style]
}

func relative(d time.Duration) string {
	future := d > 0
	if d < 0 {
		d = -d
	}

	var phrase string
	switch secs := int64(d / time.Second); {
	case secs < 45:
		phrase = "a few seconds"
	case secs < 90:
		phrase = "a minute"
	case secs < 45*60:
		phrase = fmt.Sprintf("%d minutes", (secs+30)/60)
	case secs < 90*60:
		phrase = "an hour"
	case secs < 22*3600:
		phrase = fmt.Sprintf("%d hours", (secs+1800)/3600)
	case secs < 36*3600:
		phrase = "a day"
	case secs < 26*86400:
		phrase = fmt.Sprintf("%d days", (secs+43200)/86400)
	case secs < 46*86400:
		phrase = "a month"
	case secs < 320*86400:
		phrase = fmt.Sprintf("%d months", (secs+15*86400)/(30*86400))
	case secs < 548*86400:
		phrase = "a year"
	default:
		phrase = fmt.Sprintf("%d years", (secs+182*86400)/(365*86400))
	}

	if future {
		return "in " + phrase
	}
	return phrase + " ago"
}
