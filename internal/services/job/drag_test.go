package job

import (
	"testing"
	"time"
	"trafficdesk/internal/models"

	"github.com/stretchr/testify/assert"
)

func board() []Column {
	mon := time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC)
	return []Column{
		{ID: "mon", Jobs: []models.Job{mkJob("a", mon), mkJob("b", mon), mkJob("c", mon)}},
		{ID: "tue", Jobs: []models.Job{mkJob("d", mon), mkJob("e", mon)}},
		{ID: "wed", Jobs: []models.Job{}},
	}
}

func TestDragSameIndexIsNoop(t *testing.T) {
	d := NewDrag(board())
	before := d.Columns()
	d.End("b", "b")
	assert.Equal(t, before, d.Columns())

	moved := d.Over("b", "a", false)
	assert.False(t, moved)
	assert.Equal(t, before, d.Columns())
}

func TestDragReorderWithinColumn(t *testing.T) {
	d := NewDrag(board())
	d.End("a", "c")
	assert.Equal(t, []string{"b", "c", "a"}, d.Columns()[0].Items)
	d.End("a", "b")
	assert.Equal(t, []string{"a", "b", "c"}, d.Columns()[0].Items)
}

func TestDragAcrossColumns(t *testing.T) {
	d := NewDrag(board())
	assert.True(t, d.Over("b", "e", false))
	cols := d.Columns()
	assert.Equal(t, []string{"a", "c"}, cols[0].Items)
	assert.Equal(t, []string{"d", "b", "e"}, cols[1].Items)

	assert.False(t, d.Over("b", "e", true))
	d.End("b", "e")
	assert.Equal(t, []string{"d", "e", "b"}, d.Columns()[1].Items)
}

func TestDragOntoColumnAppends(t *testing.T) {
	d := NewDrag(board())
	d.End("a", "tue")
	cols := d.Columns()
	assert.Equal(t, []string{"b", "c"}, cols[0].Items)
	assert.Equal(t, []string{"d", "e", "a"}, cols[1].Items)

	d.End("c", "wed")
	assert.Equal(t, []string{"c"}, d.Columns()[2].Items)
}

func TestDragBelowHoveredCard(t *testing.T) {
	d := NewDrag(board())
	d.Over("a", "d", true)
	assert.Equal(t, []string{"d", "a", "e"}, d.Columns()[1].Items)
}

func TestDragColumnReordersColumns(t *testing.T) {
	d := NewDrag(board())
	d.End("wed", "a")
	cols := d.Columns()
	assert.Equal(t, "wed", cols[0].ID)
	assert.Equal(t, "mon", cols[1].ID)
	assert.Equal(t, []string{"a", "b", "c"}, cols[1].Items)
}

func TestDragUnknownIDsAreIgnored(t *testing.T) {
	d := NewDrag(board())
	before := d.Columns()
	d.End("zzz", "a")
	d.End("a", "zzz")
	assert.Equal(t, before, d.Columns())
}

func TestDragLeavesSourceColumnsUntouched(t *testing.T) {
	cols := board()
	d := NewDrag(cols)
	d.End("a", "tue")
	assert.Equal(t, "a", cols[0].Jobs[0].ID)
	assert.Len(t, cols[1].Jobs, 2)
}

func TestDragFromIDsMatchesColumns(t *testing.T) {
	ids := NewDrag(board()).Columns()
	d := DragFromIDs(ids)
	assert.Equal(t, ids, d.Columns())

	d.End("a", "c")
	assert.Equal(t, []string{"b", "c", "a"}, d.Columns()[0].Items)
	assert.Equal(t, []string{"a", "b", "c"}, ids[0].Items)
}
