package timetable

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FreeMarker fills both fields of an unfilled assignment.
const FreeMarker = "FREE"

// Free is the sentinel assignment for a slot nothing could be placed in.
var Free = Assignment{Subject: FreeMarker, Teacher: FreeMarker}

// Assignment pairs a subject with the teacher delivering it.
type Assignment struct {
	Subject string
	Teacher string
}

// IsFree reports whether the assignment is the FREE sentinel.
func (a Assignment) IsFree() bool {
	return a == Free
}

// MarshalJSON encodes the assignment as a [subject, teacher] pair.
func (a Assignment) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{a.Subject, a.Teacher})
}

// UnmarshalJSON decodes a [subject, teacher] pair.
func (a *Assignment) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("assignment must have 2 elements, got %d", len(pair))
	}
	a.Subject, a.Teacher = pair[0], pair[1]
	return nil
}

// PeriodSlot maps each class section to its assignment for one period.
type PeriodSlot map[string]Assignment

// DayTable holds one PeriodSlot per period of the day.
type DayTable []PeriodSlot

// Load counts real assignments per teacher.
type Load map[string]int

func (l Load) add(other Load) {
	for teacher, count := range other {
		l[teacher] += count
	}
}

// DayEntry is one scheduled day of a week.
type DayEntry struct {
	Day   string
	Table DayTable
}

// WeeklyTable keeps day tables in the order the days were requested.
// A label requested twice keeps both runs in Entries; Get and the JSON
// object form resolve it to the later run.
type WeeklyTable struct {
	Entries []DayEntry
}

// Days returns the distinct day labels in first-seen order.
func (w WeeklyTable) Days() []string {
	seen := make(map[string]struct{}, len(w.Entries))
	days := make([]string, 0, len(w.Entries))
	for _, entry := range w.Entries {
		if _, ok := seen[entry.Day]; ok {
			continue
		}
		seen[entry.Day] = struct{}{}
		days = append(days, entry.Day)
	}
	return days
}

// Get returns the table scheduled for day.
func (w WeeklyTable) Get(day string) (DayTable, bool) {
	for i := len(w.Entries) - 1; i >= 0; i-- {
		if w.Entries[i].Day == day {
			return w.Entries[i].Table, true
		}
	}
	return nil, false
}

// Len returns the number of scheduled day runs.
func (w WeeklyTable) Len() int {
	return len(w.Entries)
}

// MarshalJSON encodes the table as a JSON object keyed by day, preserving day order.
func (w WeeklyTable) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, day := range w.Days() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(day)
		if err != nil {
			return nil, err
		}
		table, _ := w.Get(day)
		if table == nil {
			table = DayTable{}
		}
		value, err := json.Marshal(table)
		if err != nil {
			return nil, fmt.Errorf("encode day %s: %w", day, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a day-keyed object, keeping key order.
func (w *WeeklyTable) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("weekly table must be a JSON object")
	}
	entries := make([]DayEntry, 0)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		day, ok := tok.(string)
		if !ok {
			return fmt.Errorf("weekly table key must be a string")
		}
		var table DayTable
		if err := dec.Decode(&table); err != nil {
			return fmt.Errorf("decode day %s: %w", day, err)
		}
		entries = append(entries, DayEntry{Day: day, Table: table})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	w.Entries = entries
	return nil
}
