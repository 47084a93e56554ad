package weather

// Tally counts string keys and remembers the order in which each key was
// first seen, so that Winner breaks ties deterministically.
type Tally struct {
	order  []string
	counts map[string]int
}

// NewTally creates an empty Tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[string]int)}
}

// Add records one vote for key.
func (t *Tally) Add(key string) {
	if _, seen := t.counts[key]; !seen {
		t.order = append(t.order, key)
	}
	t.counts[key]++
}

// Winner returns the key with the highest count. Among equal counts the key
// seen first wins. ok is false when nothing was added.
func (t *Tally) Winner() (key string, ok bool) {
	best := -1
	for _, k := range t.order {
		if c := t.counts[k]; c > best {
			key, best = k, c
		}
	}
	return key, best > 0
}
