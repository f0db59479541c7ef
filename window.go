package zipgraph

// referenceWindow is the bounded FIFO ring of the most recently processed
// successor lists, addressed by back-distance from the current node. Every
// encoder and decoder owns a private instance; the window is never shared
// across goroutines.
type referenceWindow struct {
	lists [][]uint64
	// depths mirrors lists with the reference-chain depth recorded for
	// each entry. Decoders leave it zero; only the strategy selector
	// reads it.
	depths []uint32
	// next is the ring slot the upcoming list will occupy.
	next int
	// filled counts pushed lists, saturating at the capacity.
	filled int
}

// newReferenceWindow builds a window holding up to capacity lists. A zero
// capacity yields a window that accepts pushes and resolves nothing.
func newReferenceWindow(capacity uint32) *referenceWindow {
	return &referenceWindow{
		lists:  make([][]uint64, capacity),
		depths: make([]uint32, capacity),
	}
}

func (w *referenceWindow) capacity() int {
	return len(w.lists)
}

// push records the successor list of the node just processed, evicting the
// oldest entry once the window is full. The window keeps the slice; the
// caller must not mutate it afterwards.
func (w *referenceWindow) push(list []uint64, chainDepth uint32) {
	if len(w.lists) == 0 {
		return
	}
	w.lists[w.next] = list
	w.depths[w.next] = chainDepth
	w.next = (w.next + 1) % len(w.lists)
	if w.filled < len(w.lists) {
		w.filled++
	}
}

// lookup returns the successor list at back-distance dist (1 = the node
// pushed most recently). The second return is false when the distance is
// outside the window or beyond what has been pushed.
func (w *referenceWindow) lookup(dist uint32) ([]uint64, bool) {
	if dist == 0 || int(dist) > w.filled {
		return nil, false
	}
	slot := (w.next - int(dist) + len(w.lists)*2) % len(w.lists)
	return w.lists[slot], true
}

// chainDepth returns the recorded chain depth at back-distance dist.
func (w *referenceWindow) chainDepth(dist uint32) (uint32, bool) {
	if dist == 0 || int(dist) > w.filled {
		return 0, false
	}
	slot := (w.next - int(dist) + len(w.lists)*2) % len(w.lists)
	return w.depths[slot], true
}

// reset empties the window, as at the start of a stream or chunk.
func (w *referenceWindow) reset() {
	for i := range w.lists {
		w.lists[i] = nil
		w.depths[i] = 0
	}
	w.next = 0
	w.filled = 0
}
