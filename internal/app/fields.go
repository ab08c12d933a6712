package app

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"review_sync/internal/domain"
)

/********** alias lookups: first non-empty candidate wins **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns the string at path, numbers formatted without exponent, or "".
func lookupStr(m map[string]any, path string) string {
	switch v := lookupAny(m, path).(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case json.Number:
		return v.String()
	}
	return ""
}

// firstString: first non-empty string among paths.
func firstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

func firstAlias(m map[string]any, aliases map[string][]string, key string) string {
	return firstString(m, aliases[key]...)
}

// firstNumber: first path holding a number or a numeric string.
func firstNumber(m map[string]any, paths ...string) (float64, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			return v, true
		case int:
			return float64(v), true
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return f, true
			}
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return f, true
			}
		}
	}
	return 0, false
}

// firstBool: first path holding a bool (or "true"/"false").
func firstBool(m map[string]any, paths ...string) (bool, bool) {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case bool:
			return v, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// firstTime: first parseable timestamp among paths, else now.
// Numbers are epoch milliseconds.
func firstTime(m map[string]any, now time.Time, paths ...string) time.Time {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			if v > 0 {
				return time.UnixMilli(int64(v)).UTC()
			}
		case string:
			s := strings.TrimSpace(v)
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, s); err == nil {
					return t.UTC()
				}
			}
		}
	}
	return now.UTC()
}

// clampRating truncates to an integer star count in 0..5.
func clampRating(f float64) int {
	if math.IsNaN(f) || f <= 0 {
		return 0
	}
	if f >= 5 {
		return 5
	}
	return int(f)
}

func orAnonymous(s string) string {
	if s == "" {
		return domain.AnonymousAuthor
	}
	return s
}

func ptrStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
