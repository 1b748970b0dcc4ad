package verifier

import (
	"math"
	"slices"

	"github.com/limaJavier/examtabling/pkg/model"
	"github.com/samber/lo"
)

// loadStats summarises the number of sessions per catalog invigilator. The
// deviation is the sample one and is zero below two invigilators.
func loadStats(index *sessionIndex, invigilators []model.Invigilator) model.LoadStats {
	if len(invigilators) == 0 {
		return model.LoadStats{}
	}

	loads := lo.Map(invigilators, func(invigilator model.Invigilator, _ int) int {
		return index.load[invigilator.Id]
	})
	mean := float64(lo.Sum(loads)) / float64(len(loads))

	stats := model.LoadStats{
		Min:  lo.Min(loads),
		Max:  lo.Max(loads),
		Mean: mean,
	}
	if len(loads) > 1 {
		squares := lo.SumBy(loads, func(load int) float64 {
			return (float64(load) - mean) * (float64(load) - mean)
		})
		stats.StdDev = math.Sqrt(squares / float64(len(loads)-1))
	}
	return stats
}

// idleInvigilators returns up to limit catalog invigilators without any
// session, lowest identifiers first, along with the total idle count.
func idleInvigilators(index *sessionIndex, invigilators []model.Invigilator, limit int) ([]uint64, int) {
	idle := lo.FilterMap(invigilators, func(invigilator model.Invigilator, _ int) (uint64, bool) {
		return invigilator.Id, index.load[invigilator.Id] == 0
	})
	slices.Sort(idle)

	count := len(idle)
	if limit >= 0 && len(idle) > limit {
		idle = idle[:limit]
	}
	return idle, count
}
