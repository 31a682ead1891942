package job

// ColumnIDs is the id-only view of a board column used while dragging.
type ColumnIDs struct {
	ID    string   `json:"id"`
	Items []string `json:"items"`
}

// Drag holds the transient column -> job ids mapping for one drag gesture.
// It never touches the source columns; the authoritative board is rebuilt
// from stored jobs once the gesture ends.
type Drag struct {
	order []string
	items map[string][]string
}

func NewDrag(cols []Column) *Drag {
	d := &Drag{items: make(map[string][]string, len(cols))}
	for _, c := range cols {
		d.order = append(d.order, c.ID)
		ids := make([]string, 0, len(c.Jobs))
		for _, j := range c.Jobs {
			ids = append(ids, j.ID)
		}
		d.items[c.ID] = ids
	}
	return d
}

// DragFromIDs starts a gesture from the id-only board the client holds.
func DragFromIDs(cols []ColumnIDs) *Drag {
	d := &Drag{items: make(map[string][]string, len(cols))}
	for _, c := range cols {
		d.order = append(d.order, c.ID)
		d.items[c.ID] = append([]string{}, c.Items...)
	}
	return d
}

func (d *Drag) Columns() []ColumnIDs {
	out := make([]ColumnIDs, 0, len(d.order))
	for _, id := range d.order {
		out = append(out, ColumnIDs{ID: id, Items: append([]string(nil), d.items[id]...)})
	}
	return out
}

func (d *Drag) isColumn(id string) bool {
	_, ok := d.items[id]
	return ok
}

// container returns the column holding id, or id itself when it names a
// column.
func (d *Drag) container(id string) (string, bool) {
	if d.isColumn(id) {
		return id, true
	}
	for _, col := range d.order {
		if indexOf(d.items[col], id) >= 0 {
			return col, true
		}
	}
	return "", false
}

// Over handles the pointer crossing into another column. The card is
// inserted at the hovered card's index (after it when below is set), or
// appended when hovering the column itself. It reports whether anything
// moved.
func (d *Drag) Over(activeID, overID string, below bool) bool {
	if d.isColumn(activeID) {
		return false
	}
	from, ok := d.container(activeID)
	if !ok {
		return false
	}
	to, ok := d.container(overID)
	if !ok || from == to {
		return false
	}
	target := d.items[to]
	newIndex := len(target)
	if !d.isColumn(overID) {
		newIndex = indexOf(target, overID)
		if below {
			newIndex++
		}
	}
	d.items[from] = remove(d.items[from], indexOf(d.items[from], activeID))
	d.items[to] = insert(target, newIndex, activeID)
	return true
}

// End finishes the gesture. Dragging a column reorders columns; dragging a
// card performs any pending cross-column move and then a stable move within
// the final column when the indexes differ.
func (d *Drag) End(activeID, overID string) {
	if d.isColumn(activeID) {
		to, ok := d.container(overID)
		if !ok {
			return
		}
		d.order = move(d.order, indexOf(d.order, activeID), indexOf(d.order, to))
		return
	}
	d.Over(activeID, overID, false)
	col, ok := d.container(activeID)
	if !ok || d.isColumn(overID) {
		return
	}
	if other, _ := d.container(overID); other != col {
		return
	}
	items := d.items[col]
	from, to := indexOf(items, activeID), indexOf(items, overID)
	if from != to {
		d.items[col] = move(items, from, to)
	}
}

func indexOf(items []string, id string) int {
	for i, v := range items {
		if v == id {
			return i
		}
	}
	return -1
}

func remove(items []string, i int) []string {
	out := make([]string, 0, len(items))
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...)
}

func insert(items []string, i int, id string) []string {
	if i < 0 || i > len(items) {
		i = len(items)
	}
	out := make([]string, 0, len(items)+1)
	out = append(out, items[:i]...)
	out = append(out, id)
	return append(out, items[i:]...)
}

// move relocates the element at from to index to, shifting the rest.
func move(items []string, from, to int) []string {
	if from == to || from < 0 || to < 0 {
		return items
	}
	v := items[from]
	return insert(remove(items, from), to, v)
}
