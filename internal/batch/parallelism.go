package batch

import "math"

const DefaultWorkerRatio = 0.75

// WorkerBudget returns override when it is positive, otherwise
// floor(available CPUs * ratio) with a minimum of one.
func WorkerBudget(override int, ratio float64) int {
	if override > 0 {
		return override
	}
	return budgetFor(availableParallelism(), ratio)
}

func budgetFor(available int, ratio float64) int {
	if ratio <= 0 || ratio > 1 || math.IsNaN(ratio) {
		ratio = DefaultWorkerRatio
	}
	return max(1, int(math.Floor(float64(available)*ratio)))
}
