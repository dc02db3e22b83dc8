package scraper

// Accumulator collects headlines in discovery order and drops structural
// duplicates. The scan is linear; one extractor run yields at most a few
// hundred records.
type Accumulator struct {
	items []Headline
}

func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add appends h unless an equal headline is already present. It reports
// whether h was added.
func (a *Accumulator) Add(h Headline) bool {
	if a.Contains(h) {
		return false
	}
	a.items = append(a.items, h)
	return true
}

func (a *Accumulator) Contains(h Headline) bool {
	for _, existing := range a.items {
		if existing == h {
			return true
		}
	}
	return false
}

func (a *Accumulator) Len() int {
	return len(a.items)
}

// Headlines returns a copy of the collected records.
func (a *Accumulator) Headlines() []Headline {
	out := make([]Headline, len(a.items))
	copy(out, a.items)
	return out
}
