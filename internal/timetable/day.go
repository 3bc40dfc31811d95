package timetable

import (
	"fmt"

	appErrors "github.com/noah-isme/edunova-api/pkg/errors"
)

// maxStreak is the longest run of consecutive periods a teacher may teach.
const maxStreak = 2

// Shuffler randomises the order of n elements.
// *math/rand.Rand satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// dayState is the per-day constraint bookkeeping, discarded at day end.
type dayState struct {
	streak     map[string]int
	lockHolder string
	locked     bool
}

func newDayState() *dayState {
	return &dayState{streak: make(map[string]int)}
}

func (s *dayState) eligible(teacher string, used map[string]struct{}) bool {
	if _, busy := used[teacher]; busy {
		return false
	}
	streak := s.streak[teacher]
	if streak >= maxStreak {
		return false
	}
	if streak == maxStreak-1 && s.locked && s.lockHolder != teacher {
		return false
	}
	return true
}

func (s *dayState) take(teacher string) {
	s.streak[teacher]++
	if s.streak[teacher] == maxStreak && !s.locked {
		s.locked = true
		s.lockHolder = teacher
	}
}

func (s *dayState) endPeriod(used map[string]struct{}) {
	for teacher := range s.streak {
		if _, ok := used[teacher]; !ok {
			s.streak[teacher] = 0
		}
	}
}

// ScheduleDay fills periodsPerDay periods for classes, returning the day table
// and the number of real assignments each teacher received that day.
// Slots that no subject can fill get the Free sentinel.
func ScheduleDay(classes, subjects []string, subjectTeacher map[string]string, periodsPerDay int, rng Shuffler) (DayTable, Load, error) {
	if periodsPerDay < 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrInvalidParameter, fmt.Sprintf("periods_per_day must be >= 0, got %d", periodsPerDay))
	}
	if err := ValidateMapping(subjects, subjectTeacher); err != nil {
		return nil, nil, err
	}
	table, counts := scheduleDay(classes, subjects, subjectTeacher, periodsPerDay, rng)
	return table, counts, nil
}

func scheduleDay(classes, subjects []string, subjectTeacher map[string]string, periodsPerDay int, rng Shuffler) (DayTable, Load) {
	table := make(DayTable, periodsPerDay)
	counts := teacherLoad(subjectTeacher)
	state := newDayState()

	order := append([]string(nil), classes...)
	pool := append([]string(nil), subjects...)

	for p := 0; p < periodsPerDay; p++ {
		slot := make(PeriodSlot, len(classes))
		used := make(map[string]struct{})

		rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
		for _, class := range order {
			rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

			slot[class] = Free
			for _, subject := range pool {
				teacher := subjectTeacher[subject]
				if !state.eligible(teacher, used) {
					continue
				}
				slot[class] = Assignment{Subject: subject, Teacher: teacher}
				used[teacher] = struct{}{}
				state.take(teacher)
				counts[teacher]++
				break
			}
		}

		state.endPeriod(used)
		table[p] = slot
	}
	return table, counts
}

// ValidateMapping fails with a configuration error when a subject has no
// teacher or when a subject or teacher uses the FREE marker.
func ValidateMapping(subjects []string, subjectTeacher map[string]string) error {
	for _, subject := range subjects {
		if subject == FreeMarker {
			return reservedMarker("subject")
		}
		if _, ok := subjectTeacher[subject]; !ok {
			return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("subject %q has no teacher mapping", subject))
		}
	}
	for subject, teacher := range subjectTeacher {
		if subject == FreeMarker {
			return reservedMarker("subject")
		}
		if teacher == FreeMarker {
			return reservedMarker("teacher")
		}
	}
	return nil
}

func reservedMarker(field string) error {
	return appErrors.Clone(appErrors.ErrConfiguration, fmt.Sprintf("%q is reserved and cannot be used as a %s name", FreeMarker, field))
}

// teacherLoad seeds a zero count for every distinct teacher in the mapping.
func teacherLoad(subjectTeacher map[string]string) Load {
	load := make(Load, len(subjectTeacher))
	for _, teacher := range subjectTeacher {
		load[teacher] = 0
	}
	return load
}
