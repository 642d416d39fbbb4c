package lending

import "equipment_lending/models"

// CommittedSum is the reservation calculator: the quantity already committed by
// loans that contend with w. Stores backed by SQL evaluate the same predicate in the query.
func CommittedSum(loans []models.Loan, w Window) int {
	sum := 0
	for _, l := range loans {
		if w.Contends(l) {
			sum += l.Quantity
		}
	}
	return sum
}

// AvailableUnits is total minus committed, floored at zero.
func AvailableUnits(total, committed int) int {
	if free := total - committed; free > 0 {
		return free
	}
	return 0
}

// PeakCommitted is the largest quantity held at any single instant inside w.
// The covering sum only steps up at a BorrowedAt, so those instants plus the
// window start are the only candidates.
func PeakCommitted(loans []models.Loan, w Window) int {
	candidates := []Window{At(w.start)}
	if !w.instant {
		for _, l := range loans {
			if l.BorrowedAt.After(w.start) && w.Contends(l) {
				candidates = append(candidates, At(l.BorrowedAt))
			}
		}
	}

	peak := 0
	for _, at := range candidates {
		if s := CommittedSum(loans, at); s > peak {
			peak = s
		}
	}
	return peak
}
