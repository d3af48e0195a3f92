package supervise

import (
	"bytes"
	"sync"
)

// capWriter captures a stream up to a fixed ceiling. Past the ceiling, writes
// are accepted and discarded — the process keeps running, only the truncation
// flag is set. When discards pile up past floodAt, it signals once on flood so
// the supervisor can kill a runaway producer.
type capWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	max       int64
	discarded int64
	truncated bool

	floodAt   int64
	flood     chan<- struct{}
	floodSent bool
}

func newCapWriter(max, floodAt int64, flood chan<- struct{}) *capWriter {
	return &capWriter{max: max, floodAt: floodAt, flood: flood}
}

// Write never returns an error: reporting one would make the child die on a
// broken pipe instead of reaching its own termination.
func (w *capWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	room := w.max - int64(w.buf.Len())
	if room > 0 {
		n := int64(len(p))
		if n > room {
			n = room
		}
		w.buf.Write(p[:n])
	}
	over := int64(len(p)) - room
	if over > 0 {
		w.truncated = true
		w.discarded += over
		if w.floodAt > 0 && w.discarded > w.floodAt && !w.floodSent {
			w.floodSent = true
			select {
			case w.flood <- struct{}{}:
			default:
			}
		}
	}
	return len(p), nil
}

func (w *capWriter) contents() (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String(), w.truncated
}
