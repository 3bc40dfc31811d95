package timetable

import (
	"fmt"
	"math/rand"

	"golang.org/x/sync/errgroup"

	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
)

// Rand is the randomness a weekly run draws from. *math/rand.Rand satisfies it.
type Rand interface {
	Shuffler
	Int63() int64
}

// NewRand returns a generator seeded with seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Week is the result of a weekly run. Loads sums every entry of Table,
// including earlier runs of a repeated day that the JSON form of Table hides.
type Week struct {
	Table   WeeklyTable `json:"timetable"`
	Classes []string    `json:"classes"`
	Loads   Load        `json:"loads"`
}

// Stats summarises slot usage across the week.
type Stats struct {
	Slots       int `json:"slots"`
	FreeSlots   int `json:"freeSlots"`
	FilledSlots int `json:"filledSlots"`
}

// Stats counts filled and free slots over every scheduled day run.
func (w *Week) Stats() Stats {
	var stats Stats
	for _, entry := range w.Table.Entries {
		for _, slot := range entry.Table {
			for _, assignment := range slot {
				stats.Slots++
				if assignment.IsFree() {
					stats.FreeSlots++
				} else {
					stats.FilledSlots++
				}
			}
		}
	}
	return stats
}

type weekOptions struct {
	parallelDays int
}

// Option tunes ScheduleWeek.
type Option func(*weekOptions)

// WithParallelDays schedules up to n days concurrently. Output is identical
// to a sequential run with the same seed.
func WithParallelDays(n int) Option {
	return func(o *weekOptions) {
		o.parallelDays = n
	}
}

// ClassLabels returns C1..Cn.
func ClassLabels(n int) []string {
	if n <= 0 {
		return []string{}
	}
	labels := make([]string, n)
	for i := range labels {
		labels[i] = fmt.Sprintf("C%d", i+1)
	}
	return labels
}

// ScheduleWeek runs ScheduleDay once per day in days, each with fresh streak
// and lock state, and sums per-day teacher counts into the weekly load.
func ScheduleWeek(numClasses int, days []string, periodsPerDay int, subjects []string, subjectTeacher map[string]string, rng Rand, opts ...Option) (*Week, error) {
	if numClasses < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("num_classes must be >= 0, got %d", numClasses))
	}
	if periodsPerDay < 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("periods_per_day must be >= 0, got %d", periodsPerDay))
	}
	if err := ValidateMapping(subjects, subjectTeacher); err != nil {
		return nil, err
	}

	options := weekOptions{parallelDays: 1}
	for _, opt := range opts {
		opt(&options)
	}

	classes := ClassLabels(numClasses)

	// Seeds are drawn in day order so the result does not depend on how
	// days are executed.
	seeds := make([]int64, len(days))
	for i := range seeds {
		seeds[i] = rng.Int63()
	}

	tables := make([]DayTable, len(days))
	counts := make([]Load, len(days))
	run := func(i int) {
		tables[i], counts[i] = scheduleDay(classes, subjects, subjectTeacher, periodsPerDay, NewRand(seeds[i]))
	}

	if options.parallelDays > 1 && len(days) > 1 {
		var g errgroup.Group
		g.SetLimit(options.parallelDays)
		for i := range days {
			i := i
			g.Go(func() error {
				run(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range days {
			run(i)
		}
	}

	week := &Week{
		Table:   WeeklyTable{Entries: make([]DayEntry, 0, len(days))},
		Classes: classes,
		Loads:   teacherLoad(subjectTeacher),
	}
	for i, day := range days {
		week.Table.Entries = append(week.Table.Entries, DayEntry{Day: day, Table: tables[i]})
		week.Loads.add(counts[i])
	}
	return week, nil
}
