package scheduler

import (
	"cmp"
	"slices"

	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

// pickInvigilators resolves up to count invigilators for a course on a date:
// the responsible invigilator first, then same-department colleagues, then
// everyone else. Within each pool the least loaded come first and ties keep
// catalog order. Only invigilators under the daily cap qualify.
func (state *runState) pickInvigilators(date string, course model.Course, count int, crossDepartmentFirst bool) []uint64 {
	chosen := make([]uint64, 0, count)
	if count <= 0 {
		return chosen
	}

	if course.ResponsibleInvigilator != nil && state.underCap(date, *course.ResponsibleInvigilator) {
		chosen = append(chosen, *course.ResponsibleInvigilator)
	}

	eligible := lo.Filter(state.invigilators, func(invigilator model.Invigilator, _ int) bool {
		return !slices.Contains(chosen, invigilator.Id) && state.underCap(date, invigilator.Id)
	})
	sameDepartment, otherDepartments := lo.FilterReject(eligible, func(invigilator model.Invigilator, _ int) bool {
		return invigilator.Department == course.Department
	})

	byLoad := func(a, b model.Invigilator) int {
		return cmp.Compare(state.dayLoad(date, a.Id), state.dayLoad(date, b.Id))
	}
	slices.SortStableFunc(sameDepartment, byLoad)
	slices.SortStableFunc(otherDepartments, byLoad)

	pools := [][]model.Invigilator{sameDepartment, otherDepartments}
	if crossDepartmentFirst {
		pools = [][]model.Invigilator{otherDepartments, sameDepartment}
	}
	for _, pool := range pools {
		for _, invigilator := range pool {
			if len(chosen) == count {
				return chosen
			}
			chosen = append(chosen, invigilator.Id)
		}
	}
	return chosen
}
