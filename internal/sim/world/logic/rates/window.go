package rates

// Window is a fixed tick window counter. The zero value with Size 0 or
// Max <= 0 allows everything.
type Window struct {
	Size uint64
	Max  int

	start uint64
	count int
}

// Allow records one event at nowTick. When the window is exhausted it
// reports how many ticks remain until it resets.
func (w *Window) Allow(nowTick uint64) (ok bool, cooldownTicks uint64) {
	if w.Size == 0 || w.Max <= 0 {
		return true, 0
	}
	if nowTick < w.start || nowTick-w.start >= w.Size {
		w.start = nowTick
		w.count = 0
	}
	if w.count >= w.Max {
		return false, (w.start + w.Size) - nowTick
	}
	w.count++
	return true, 0
}
