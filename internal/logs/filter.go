package logs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

var levelRank = map[string]int{"debug": 0, "info": 1, "warn": 2, "warning": 2, "error": 3}

// Filter narrows JSON log records. Zero fields match everything.
type Filter struct {
	MinLevel  string
	RequestID string
	StoryID   int64
	ReelID    string
	Component string
	Search    string
}

// Match reports whether line is a JSON record accepted by f. Lines that are
// not JSON only match an empty filter.
func (f Filter) Match(line string) bool {
	if !gjson.Valid(line) {
		return f == Filter{}
	}
	record := gjson.Parse(line)
	if f.MinLevel != "" {
		want, ok := levelRank[strings.ToLower(f.MinLevel)]
		got, known := levelRank[strings.ToLower(record.Get("level").String())]
		if ok && known && got < want {
			return false
		}
	}
	if f.RequestID != "" && record.Get("request_id").String() != f.RequestID {
		return false
	}
	if f.StoryID != 0 && record.Get("story_id").Int() != f.StoryID {
		return false
	}
	if f.ReelID != "" && !strings.EqualFold(record.Get("reel_id").String(), f.ReelID) {
		return false
	}
	if f.Component != "" && record.Get("component").String() != f.Component {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(line), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

var headerKeys = map[string]bool{"ts": true, "level": true, "msg": true, "component": true, "source": true}

// Format renders a JSON record as a single human readable line:
// "ts LEVEL [component] msg key=value ...", with keys sorted. Non-JSON
// lines are returned unchanged.
func Format(line string) string {
	if !gjson.Valid(line) {
		return line
	}
	record := gjson.Parse(line)

	var b strings.Builder
	if ts := record.Get("ts").String(); ts != "" {
		b.WriteString(ts)
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(record.Get("level").String()))
	if component := record.Get("component").String(); component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	b.WriteByte(' ')
	b.WriteString(record.Get("msg").String())

	var keys []string
	fields := map[string]string{}
	record.ForEach(func(key, value gjson.Result) bool {
		if !headerKeys[key.String()] {
			keys = append(keys, key.String())
			fields[key.String()] = value.String()
		}
		return true
	})
	sort.Strings(keys)
	for _, key := range keys {
		value := fields[key]
		if strings.ContainsAny(value, " \t") {
			value = fmt.Sprintf("%q", value)
		}
		fmt.Fprintf(&b, " %s=%s", key, value)
	}
	return b.String()
}
