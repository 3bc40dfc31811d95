package timetable

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
)

var workdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

func busyRoster() ([]string, map[string]string) {
	subjects := []string{"Math", "Physics", "Biology", "Chemistry", "History", "Art", "Music", "English"}
	mapping := map[string]string{
		"Math":      "Alice",
		"Physics":   "Alice",
		"Biology":   "Bob",
		"Chemistry": "Bob",
		"History":   "Cara",
		"Art":       "Dan",
		"Music":     "Dan",
		"English":   "Eve",
	}
	return subjects, mapping
}

func TestScheduleWeekInvariantsHoldAcrossSeeds(t *testing.T) {
	subjects, mapping := busyRoster()
	for seed := int64(1); seed <= 60; seed++ {
		week, err := ScheduleWeek(4, workdays, 7, subjects, mapping, NewRand(seed))
		require.NoError(t, err, "seed %d", seed)
		assertWeekInvariants(t, week, 7)
	}
}

func TestScheduleWeekSingleClassScenario(t *testing.T) {
	week, err := ScheduleWeek(1, []string{"Monday"}, 3, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(99))
	require.NoError(t, err)

	raw, err := json.Marshal(week.Table)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Monday":[{"C1":["Math","Alice"]},{"C1":["Math","Alice"]},{"C1":["FREE","FREE"]}]}`, string(raw))
	assert.Equal(t, Load{"Alice": 2}, week.Loads)
}

func TestScheduleWeekNoDays(t *testing.T) {
	week, err := ScheduleWeek(1, []string{}, 2, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, 0, week.Table.Len())
	assert.Equal(t, []string{"C1"}, week.Classes)

	raw, err := json.Marshal(week.Table)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(raw))
	assert.Equal(t, Load{"Alice": 0}, week.Loads)
}

func TestScheduleWeekMissingMapping(t *testing.T) {
	week, err := ScheduleWeek(2, []string{"Monday"}, 2, []string{"X"}, map[string]string{}, NewRand(1))
	require.Error(t, err)
	assert.Nil(t, week)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestScheduleWeekRejectsFreeMarkerBeforeScheduling(t *testing.T) {
	week, err := ScheduleWeek(2, []string{"Mon"}, 2, []string{FreeMarker}, map[string]string{FreeMarker: FreeMarker}, NewRand(1))
	require.Error(t, err)
	assert.Nil(t, week)
	assert.Equal(t, appErrors.ErrConfiguration.Code, appErrors.FromError(err).Code)
}

func TestScheduleWeekNoClasses(t *testing.T) {
	week, err := ScheduleWeek(0, []string{"Monday"}, 2, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(1))
	require.NoError(t, err)
	assert.Empty(t, week.Classes)

	monday, ok := week.Table.Get("Monday")
	require.True(t, ok)
	require.Len(t, monday, 2)
	for _, slot := range monday {
		assert.Empty(t, slot)
	}
}

func TestScheduleWeekRejectsNegativeParameters(t *testing.T) {
	cases := []struct {
		name    string
		classes int
		periods int
	}{
		{name: "classes", classes: -1, periods: 2},
		{name: "periods", classes: 2, periods: -3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			week, err := ScheduleWeek(tc.classes, workdays, tc.periods, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(1))
			require.Error(t, err)
			assert.Nil(t, week)
			assert.Equal(t, appErrors.ErrInvalidParameter.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestScheduleWeekDeterministicPerSeed(t *testing.T) {
	subjects, mapping := busyRoster()
	first, err := ScheduleWeek(5, workdays, 6, subjects, mapping, NewRand(42))
	require.NoError(t, err)
	second, err := ScheduleWeek(5, workdays, 6, subjects, mapping, NewRand(42))
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestScheduleWeekParallelMatchesSequential(t *testing.T) {
	subjects, mapping := busyRoster()
	sequential, err := ScheduleWeek(5, workdays, 6, subjects, mapping, NewRand(11))
	require.NoError(t, err)
	parallel, err := ScheduleWeek(5, workdays, 6, subjects, mapping, NewRand(11), WithParallelDays(3))
	require.NoError(t, err)

	assert.Equal(t, sequential.Table, parallel.Table)
	assert.Equal(t, sequential.Loads, parallel.Loads)
}

func TestScheduleWeekDuplicateDaysScheduledIndependently(t *testing.T) {
	week, err := ScheduleWeek(1, []string{"Monday", "Monday"}, 3, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(5))
	require.NoError(t, err)
	assert.Equal(t, 2, week.Table.Len())
	assert.Equal(t, []string{"Monday"}, week.Table.Days())
	assert.Equal(t, 4, week.Loads["Alice"])

	raw, err := json.Marshal(week.Table)
	require.NoError(t, err)
	var visible map[string][]map[string][]string
	require.NoError(t, json.Unmarshal(raw, &visible))
	shown := 0
	for _, slot := range visible["Monday"] {
		if slot["C1"][1] == "Alice" {
			shown++
		}
	}
	assert.Equal(t, 2, shown)
	assert.Greater(t, week.Loads["Alice"], shown)
}

func TestClassLabels(t *testing.T) {
	assert.Equal(t, []string{"C1", "C2", "C3"}, ClassLabels(3))
	assert.Empty(t, ClassLabels(0))

	labels := ClassLabels(12)
	require.Len(t, labels, 12)
	for i, label := range labels {
		assert.Equal(t, fmt.Sprintf("C%d", i+1), label)
	}
}

func TestWeeklyTableJSONKeepsDayOrder(t *testing.T) {
	week, err := ScheduleWeek(2, []string{"Saturday", "Monday", "Friday"}, 2, []string{"Math", "Art"}, map[string]string{"Math": "Alice", "Art": "Bob"}, NewRand(8))
	require.NoError(t, err)

	raw, err := json.Marshal(week.Table)
	require.NoError(t, err)

	var decoded WeeklyTable
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, []string{"Saturday", "Monday", "Friday"}, decoded.Days())
	assert.Equal(t, week.Table, decoded)
}

func TestWeekStats(t *testing.T) {
	week, err := ScheduleWeek(1, []string{"Monday"}, 3, []string{"Math"}, map[string]string{"Math": "Alice"}, NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, Stats{Slots: 3, FreeSlots: 1, FilledSlots: 2}, week.Stats())
}

func assertWeekInvariants(t *testing.T, week *Week, periods int) {
	t.Helper()
	load := Load{}
	for _, entry := range week.Table.Entries {
		require.Len(t, entry.Table, periods, entry.Day)

		streak := map[string]int{}
		doubled := map[string]struct{}{}
		for p, slot := range entry.Table {
			require.Len(t, slot, len(week.Classes), "%s period %d", entry.Day, p)

			seen := map[string]struct{}{}
			for _, class := range week.Classes {
				assignment, ok := slot[class]
				require.True(t, ok, "%s period %d class %s unset", entry.Day, p, class)
				if assignment.IsFree() {
					continue
				}
				_, dup := seen[assignment.Teacher]
				require.False(t, dup, "%s period %d double-books %s", entry.Day, p, assignment.Teacher)
				seen[assignment.Teacher] = struct{}{}
				load[assignment.Teacher]++
			}

			for teacher := range seen {
				streak[teacher]++
				require.LessOrEqual(t, streak[teacher], 2, "%s period %d: %s exceeds streak", entry.Day, p, teacher)
				if streak[teacher] == 2 {
					doubled[teacher] = struct{}{}
				}
			}
			for teacher := range streak {
				if _, ok := seen[teacher]; !ok {
					streak[teacher] = 0
				}
			}
		}
		require.LessOrEqual(t, len(doubled), 1, "%s has more than one double-streak teacher", entry.Day)
	}

	for teacher, count := range week.Loads {
		assert.Equal(t, load[teacher], count, "load for %s", teacher)
	}
	for teacher := range load {
		_, ok := week.Loads[teacher]
		assert.True(t, ok, "teacher %s missing from loads", teacher)
	}
}
