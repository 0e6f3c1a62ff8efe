package grammar

// Class is a compiled character class: a set of inclusive rune ranges.
// Classes are compiled once by the grammar compiler; membership at match
// time is a linear scan over the ranges.
type Class struct {
	Ranges []RuneRange
}

type RuneRange struct {
	Lo rune
	Hi rune
}

func (c *Class) Contains(r rune) bool {
	for _, rr := range c.Ranges {
		if r >= rr.Lo && r <= rr.Hi {
			return true
		}
	}
	return false
}
