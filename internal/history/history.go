// Package history implements the append-only envelope log every State owns.
package history

import (
	"fmt"

	"yapnet/internal/protocol"
)

// History is an ordered, append-only sequence of envelopes with invariants:
//  1. entries[i].Seq == Start + i
//  2. Start <= entries[i].Seq < NextSeq
//  3. Append is the only growth operation
//  4. Merge requires self.NextSeq == other.Start
type History struct {
	entries []protocol.Envelope
	start   uint64
	nextSeq uint64
}

// New returns an empty history starting at seq 0.
func New() *History {
	return &History{}
}

// Start is the seq of the first entry this history could ever hold.
func (h *History) Start() uint64 { return h.start }

// NextSeq is the seq that will be assigned to the next appended envelope.
func (h *History) NextSeq() uint64 { return h.nextSeq }

// Len returns the number of entries currently held.
func (h *History) Len() int { return len(h.entries) }

// Append assigns the next seq to body, appends it, and returns the
// resulting envelope.
func (h *History) Append(body protocol.Body) protocol.Envelope {
	env := protocol.Envelope{Seq: h.nextSeq, Body: body}
	h.entries = append(h.entries, env)
	h.nextSeq++
	return env
}

// Get returns the envelope at seq, or an error if seq is out of range.
func (h *History) Get(seq uint64) (protocol.Envelope, error) {
	if seq < h.start || seq >= h.nextSeq {
		return protocol.Envelope{}, fmt.Errorf("history: seq %d out of range [%d, %d)", seq, h.start, h.nextSeq)
	}
	return h.entries[seq-h.start], nil
}

// SliceEmptyFrom returns a fresh, empty History starting where this one
// currently ends — used to seed a ResponseFrame.
func (h *History) SliceEmptyFrom() *History {
	return &History{start: h.nextSeq, nextSeq: h.nextSeq}
}

// Merge appends other's entries onto h. other.Start must equal h.NextSeq;
// this is the only way two histories combine.
func (h *History) Merge(other *History) error {
	if h.nextSeq != other.start {
		return fmt.Errorf("history: cannot merge: self.next_seq=%d != other.start=%d", h.nextSeq, other.start)
	}
	h.entries = append(h.entries, other.entries...)
	h.nextSeq = other.nextSeq
	return nil
}

// Iter returns a fresh, restartable iterator over every entry in order.
func (h *History) Iter() []protocol.Envelope {
	out := make([]protocol.Envelope, len(h.entries))
	copy(out, h.entries)
	return out
}
