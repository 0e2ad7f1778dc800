package model

import "testing"

func TestDirectionTurns(t *testing.T) {
	if North.Left() != West || North.Right() != East || North.Opposite() != South {
		t.Fatalf("north turns: left=%v right=%v opp=%v", North.Left(), North.Right(), North.Opposite())
	}
	if West.Right() != North || West.Left() != South {
		t.Fatalf("west turns: left=%v right=%v", West.Left(), West.Right())
	}
	for d := North; d <= West; d++ {
		f := d.Forward()
		b := d.Opposite().Forward()
		if f.X+b.X != 0 || f.Y+b.Y != 0 {
			t.Fatalf("forward/opposite not symmetric for %v", d)
		}
	}
}

func TestAllowedBySides(t *testing.T) {
	cases := []struct {
		sides int
		d     Direction
		want  bool
	}{
		{1, North, true},
		{1, East, false},
		{2, South, true},
		{2, West, false},
		{4, West, true},
		{3, North, false},
	}
	for _, c := range cases {
		if got := AllowedBySides(c.sides, c.d); got != c.want {
			t.Fatalf("AllowedBySides(%d,%v)=%v want %v", c.sides, c.d, got, c.want)
		}
	}
}

func TestFootprintRotates(t *testing.T) {
	cells := Footprint(Cell{X: 2, Y: 3}, 2, 1, North)
	if len(cells) != 2 || cells[1] != (Cell{X: 3, Y: 3}) {
		t.Fatalf("north footprint=%v", cells)
	}
	cells = Footprint(Cell{X: 2, Y: 3}, 2, 1, East)
	if len(cells) != 2 || cells[1] != (Cell{X: 2, Y: 4}) {
		t.Fatalf("east footprint=%v", cells)
	}
}

func TestFrontCell(t *testing.T) {
	if got := FrontCell(Cell{X: 0, Y: 0}, 1, 1, East); got != (Cell{X: 1, Y: 0}) {
		t.Fatalf("1x1 east front=%v", got)
	}
	if got := FrontCell(Cell{X: 0, Y: 0}, 2, 2, South); got != (Cell{X: 0, Y: 2}) {
		t.Fatalf("2x2 south front=%v", got)
	}
}

func TestColliderOverlapIsStrict(t *testing.T) {
	a := ColliderRect(Cell{X: 0, Y: 0}, 1, 1, 1, 1, North)
	b := ColliderRect(Cell{X: 1, Y: 0}, 1, 1, 1, 1, North)
	if a.Overlaps(b) {
		t.Fatalf("touching colliders must not overlap: %+v %+v", a, b)
	}
	c := ColliderRect(Cell{X: 1, Y: 0}, 1, 1, 1.4, 1, North)
	if !a.Overlaps(c) {
		t.Fatalf("wide collider should overlap neighbour")
	}
}
