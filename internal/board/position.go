package board

// NextPosition computes the append position for a new sibling: one past the
// maximum existing position, or 0 for an empty scope. Gaps in the input are
// preserved, never compacted. Two transactions that race on the same scope can
// both observe the same siblings and assign equal positions; that duplicate is
// accepted and left alone.
func NextPosition(siblings []int) int {
	next := 0
	for _, p := range siblings {
		if p >= next {
			next = p + 1
		}
	}
	return next
}
