package models

import "sort"

// Roster is the normalised subject list and subject to teacher mapping
// fed to the generator.
type Roster struct {
	Subjects       []string          `json:"subjects"`
	SubjectTeacher map[string]string `json:"subjectTeacher"`
}

// Teachers returns the distinct teachers of the roster, sorted.
func (r Roster) Teachers() []string {
	seen := make(map[string]struct{}, len(r.SubjectTeacher))
	teachers := make([]string, 0, len(r.SubjectTeacher))
	for _, teacher := range r.SubjectTeacher {
		if _, ok := seen[teacher]; ok {
			continue
		}
		seen[teacher] = struct{}{}
		teachers = append(teachers, teacher)
	}
	sort.Strings(teachers)
	return teachers
}
