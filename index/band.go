package index

import "fmt"

// Band is the similarity window a search result must fall in.
// A score s is inside the band when Radius < s <= RangeFilter.
type Band struct {
	Radius      float32
	RangeFilter float32
}

// DefaultBand is radius 0.4, range filter 0.5.
var DefaultBand = Band{Radius: 0.4, RangeFilter: 0.5}

// Contains reports whether score lies inside the band.
func (b Band) Contains(score float32) bool {
	return score > b.Radius && score <= b.RangeFilter
}

// Validate checks the band bounds.
func (b Band) Validate() error {
	if b.Radius < -1 || b.Radius > 1 || b.RangeFilter < -1 || b.RangeFilter > 1 {
		return fmt.Errorf("%w: bounds must be within [-1, 1], got (%g, %g]", ErrInvalidBand, b.Radius, b.RangeFilter)
	}
	if b.Radius >= b.RangeFilter {
		return fmt.Errorf("%w: radius %g must be below range filter %g", ErrInvalidBand, b.Radius, b.RangeFilter)
	}
	return nil
}

func (b Band) String() string {
	return fmt.Sprintf("(%g, %g]", b.Radius, b.RangeFilter)
}
