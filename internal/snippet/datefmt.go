package snippet

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrBadPattern is returned by ParsePattern for letters outside the
// supported field set, over-long fields, or an unterminated quote.
var ErrBadPattern = errors.New("snippet: invalid date pattern")

// Pattern is a compiled date pattern. Field letters follow the Unicode
// date-field symbols as date-fns reads them:
//
//	y year      Q quarter   M month     w week (Sunday start)   I ISO week
//	d day       E weekday   a AM/PM     H 0-23    k 1-24    h 1-12    K 0-11
//	m minute    s second    S fraction  X x zone offset
//
// Text in single quotes is literal and '' is a single quote.
type Pattern struct {
	fields []field
}

type field struct {
	letter byte // 0 for literal
	count  int
	lit    string
}

// maxCount is the longest run accepted for each field letter.
var maxCount = map[byte]int{
	'y': 4, 'Q': 4, 'M': 4, 'w': 2, 'I': 2, 'd': 2, 'E': 4,
	'H': 2, 'k': 2, 'h': 2, 'K': 2, 'm': 2, 's': 2, 'S': 9,
	'a': 5, 'X': 3, 'x': 3,
}

// ParsePattern compiles p.
func ParsePattern(p string) (*Pattern, error) {
	var (
		out []field
		lit strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			out = append(out, field{lit: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(p); {
		c := p[i]
		switch {
		case c == '\'':
			if i+1 < len(p) && p[i+1] == '\'' {
				lit.WriteByte('\'')
				i += 2
				continue
			}
			j := i + 1
			for {
				k := strings.IndexByte(p[j:], '\'')
				if k < 0 {
					return nil, fmt.Errorf("%w: unterminated quote in %q", ErrBadPattern, p)
				}
				lit.WriteString(p[j : j+k])
				j += k + 1
				if j < len(p) && p[j] == '\'' {
					lit.WriteByte('\'')
					j++
					continue
				}
				break
			}
			i = j

		case isLetter(c):
			limit, ok := maxCount[c]
			if !ok {
				return nil, fmt.Errorf("%w: unknown field %q in %q", ErrBadPattern, c, p)
			}
			n := 1
			for i+n < len(p) && p[i+n] == c {
				n++
			}
			if n > limit {
				return nil, fmt.Errorf("%w: field %q too long in %q", ErrBadPattern, strings.Repeat(string(c), n), p)
			}
			flush()
			out = append(out, field{letter: c, count: n})
			i += n

		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return &Pattern{fields: out}, nil
}

// MustPattern is ParsePattern that panics on error.
func MustPattern(p string) *Pattern {
	pat, err := ParsePattern(p)
	if err != nil {
		panic(err)
	}
	return pat
}

// Format renders t.
func (p *Pattern) Format(t time.Time) string {
	var b strings.Builder
	for _, f := range p.fields {
		if f.letter == 0 {
			b.WriteString(f.lit)
			continue
		}
		b.WriteString(f.render(t))
	}
	return b.String()
}

func (f field) render(t time.Time) string {
	switch f.letter {
	case 'y':
		if f.count == 2 {
			return pad(t.Year()%100, 2)
		}
		return pad(t.Year(), f.count)
	case 'M':
		switch f.count {
		case 3:
			return t.Month().String()[:3]
		case 4:
			return t.Month().String()
		}
		return pad(int(t.Month()), f.count)
	case 'Q':
		q := (int(t.Month())-1)/3 + 1
		switch f.count {
		case 3:
			return "Q" + strconv.Itoa(q)
		case 4:
			return ordinal(q) + " quarter"
		}
		return pad(q, f.count)
	case 'w':
		return pad(localWeek(t), f.count)
	case 'I':
		_, w := t.ISOWeek()
		return pad(w, f.count)
	case 'd':
		return pad(t.Day(), f.count)
	case 'E':
		if f.count == 4 {
			return t.Weekday().String()
		}
		return t.Weekday().String()[:3]
	case 'H':
		return pad(t.Hour(), f.count)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, f.count)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, f.count)
	case 'K':
		return pad(t.Hour()%12, f.count)
	case 'm':
		return pad(t.Minute(), f.count)
	case 's':
		return pad(t.Second(), f.count)
	case 'S':
		return fmt.Sprintf("%09d", t.Nanosecond())[:f.count]
	case 'a':
		am := t.Hour() < 12
		switch f.count {
		case 3:
			return pick(am, "am", "pm")
		case 4:
			return pick(am, "a.m.", "p.m.")
		case 5:
			return pick(am, "a", "p")
		}
		return pick(am, "AM", "PM")
	case 'X', 'x':
		return offset(t, f.count, f.letter == 'X')
	}
	return ""
}

// localWeek is the week of the year with weeks starting on Sunday and week
// 1 being the one that contains January 1.
func localWeek(t time.Time) int {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	start := day.AddDate(0, 0, -int(day.Weekday()))
	if next := time.Date(t.Year()+1, 1, 1, 0, 0, 0, 0, time.UTC); next.Before(start.AddDate(0, 0, 7)) {
		return 1
	}
	jan1 := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	first := jan1.AddDate(0, 0, -int(jan1.Weekday()))
	return int(start.Sub(first).Hours()/24)/7 + 1
}

func ordinal(n int) string {
	switch n {
	case 1:
		return "1st"
	case 2:
		return "2nd"
	case 3:
		return "3rd"
	}
	return strconv.Itoa(n) + "th"
}

func pick(cond bool, a, b string) string {
	if cond {
		return a
	}
	return b
}

// offset renders the zone offset. X uses "Z" for UTC; x never does.
// Count 1 omits zero minutes, 2 is +hhmm, 3 is +hh:mm.
func offset(t time.Time, count int, zulu bool) string {
	_, secs := t.Zone()
	if secs == 0 && zulu {
		return "Z"
	}
	sign := '+'
	if secs < 0 {
		sign = '-'
		secs = -secs
	}
	h, m := secs/3600, (secs%3600)/60
	switch {
	case count == 1 && m == 0:
		return fmt.Sprintf("%c%02d", sign, h)
	case count == 3:
		return fmt.Sprintf("%c%02d:%02d", sign, h, m)
	}
	return fmt.Sprintf("%c%02d%02d", sign, h, m)
}

func pad(v, width int) string {
	s := strconv.Itoa(v)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

func isLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
