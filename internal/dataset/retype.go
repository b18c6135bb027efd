package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

type columnKind int

const (
	kindText columnKind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
)

// replayLayouts are the timestamp encodings accepted when re-typing
// replayed artifacts. EncodeCSV always writes RFC3339Nano; the rest cover
// common external exports.
var replayLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// retypeStrings re-infers one scalar type per string column and converts
// its cells in place. A column converts only when every non-nil value
// parses under the same kind; mixed columns stay textual.
func (t *Table) retypeStrings() {
	for c := range t.cols {
		switch t.kindOf(c) {
		case kindInt:
			t.convert(c, func(s string) any {
				n, _ := strconv.ParseInt(s, 10, 64)
				return n
			})
		case kindFloat:
			t.convert(c, func(s string) any {
				f, _ := strconv.ParseFloat(s, 64)
				return f
			})
		case kindBool:
			t.convert(c, func(s string) any {
				return strings.EqualFold(s, "true")
			})
		case kindTime:
			t.convert(c, func(s string) any {
				ts, _ := parseReplayTime(s)
				return ts
			})
		}
	}
}

func (t *Table) kindOf(c int) columnKind {
	var (
		seen    bool
		canInt  = true
		canF    = true
		canBool = true
		canTime = true
	)
	for _, row := range t.rows {
		s, ok := row[c].(string)
		if !ok {
			if row[c] == nil {
				continue
			}
			return kindText
		}
		seen = true
		if canInt {
			_, err := strconv.ParseInt(s, 10, 64)
			canInt = err == nil
		}
		if canF && !isFloatString(s) {
			canF = false
		}
		if canBool && !strings.EqualFold(s, "true") && !strings.EqualFold(s, "false") {
			canBool = false
		}
		if canTime {
			_, ok := parseReplayTime(s)
			canTime = ok
		}
		if !canInt && !canF && !canBool && !canTime {
			return kindText
		}
	}
	if !seen {
		return kindText
	}
	switch {
	case canInt:
		return kindInt
	case canF:
		return kindFloat
	case canBool:
		return kindBool
	case canTime:
		return kindTime
	default:
		return kindText
	}
}

func (t *Table) convert(c int, fn func(string) any) {
	for _, row := range t.rows {
		if s, ok := row[c].(string); ok {
			row[c] = fn(s)
		}
	}
}

func isFloatString(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
}

func parseReplayTime(s string) (time.Time, bool) {
	for _, layout := range replayLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
