package ngram

import (
	"strings"
)

// Window is a fixed-capacity FIFO of the most recent tokens.
// A window is owned by one scan; create a fresh one per document or paragraph.
type Window struct {
	slots []string
	head  int // index of the oldest token once the window is full
	size  int
}

// NewWindow creates an empty window holding n tokens. n must be >= 1.
func NewWindow(n int) *Window {
	return &Window{slots: make([]string, n)}
}

// Full reports whether every slot holds a real token
func (w *Window) Full() bool {
	return w.size == len(w.slots)
}

// Push appends tok, evicting the oldest token when the window is full.
// It returns the space-joined n-gram and true once all N slots are filled;
// while the window is still warming up it returns "", false.
func (w *Window) Push(tok string) (string, bool) {
	n := len(w.slots)
	if w.size < n {
		w.slots[w.size] = tok
		w.size++
	} else {
		w.slots[w.head] = tok
		w.head = (w.head + 1) % n
	}
	if !w.Full() {
		return "", false
	}
	return w.key(), true
}

func (w *Window) key() string {
	n := len(w.slots)
	if n == 1 {
		return w.slots[0]
	}
	var b strings.Builder
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w.slots[(w.head+i)%n])
	}
	return b.String()
}
