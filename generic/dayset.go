package generic

import "sort"

// =============================================================================
// DAY SET - De-duplicated set of calendar days
// =============================================================================

// DaySet holds unique calendar days keyed by ordinal. Adding a day twice is
// a no-op, which is what makes overlapping stays safe to count.
type DaySet struct {
	days map[int]struct{}
}

func NewDaySet() *DaySet {
	return &DaySet{days: make(map[int]struct{})}
}

// Add inserts a single day.
func (s *DaySet) Add(d Date) {
	s.days[d.Ordinal()] = struct{}{}
}

// AddPeriod inserts every day of p. Empty periods add nothing.
func (s *DaySet) AddPeriod(p Period) {
	for n, end := p.Start.Ordinal(), p.End.Ordinal(); n <= end; n++ {
		s.days[n] = struct{}{}
	}
}

// Contains reports whether d is in the set.
func (s *DaySet) Contains(d Date) bool {
	_, ok := s.days[d.Ordinal()]
	return ok
}

// Len is the number of unique days.
func (s *DaySet) Len() int { return len(s.days) }

// Days returns the members in ascending order.
func (s *DaySet) Days() []Date {
	ordinals := make([]int, 0, len(s.days))
	for n := range s.days {
		ordinals = append(ordinals, n)
	}
	sort.Ints(ordinals)

	out := make([]Date, len(ordinals))
	for i, n := range ordinals {
		out[i] = FromOrdinal(n)
	}
	return out
}
