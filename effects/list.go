package effects

// List is the ordered effect stream of one operation. Effects without an
// explicit source inherit the operation source on insertion.
type List struct {
	source string
	items  []*Effect
}

// NewList creates an empty list for an operation with the given source.
func NewList(source string) *List {
	return &List{source: source}
}

// Append adds an effect to the end of the list.
func (l *List) Append(e *Effect) {
	l.fill(e)
	l.items = append(l.items, e)
}

// InsertAt places an effect before the element currently at index.
// An index past the end appends.
func (l *List) InsertAt(index int, e *Effect) {
	l.fill(e)
	if index < 0 {
		index = 0
	}
	if index >= len(l.items) {
		l.items = append(l.items, e)
		return
	}
	l.items = append(l.items, nil)
	copy(l.items[index+1:], l.items[index:])
	l.items[index] = e
}

// FindIndex returns the index of the first effect matching pred, or -1.
func (l *List) FindIndex(pred func(*Effect) bool) int {
	for i, e := range l.items {
		if pred(e) {
			return i
		}
	}
	return -1
}

// RemoveAt deletes the effect at index.
func (l *List) RemoveAt(index int) {
	l.items = append(l.items[:index], l.items[index+1:]...)
}

// At returns the effect at index.
func (l *List) At(index int) *Effect {
	return l.items[index]
}

func (l *List) Len() int {
	return len(l.items)
}

// Items returns the effects in order.
func (l *List) Items() []*Effect {
	return l.items
}

func (l *List) fill(e *Effect) {
	if e.Source == "" {
		e.Source = l.source
	}
}
