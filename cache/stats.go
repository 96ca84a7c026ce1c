package cache

import (
	"fmt"
	"io"
)

// Stats is an immutable snapshot of a cache's traffic counters, safe to
// pass to an external reporter after the cache itself has moved on.
type Stats struct {
	Name          string
	ReadAccesses  uint64
	ReadMisses    uint64
	WriteAccesses uint64
	WriteMisses   uint64
	BytesRead     uint64
	BytesWritten  uint64
	Writebacks    uint64
}

// MissRate returns 100 * (read misses + write misses) / (read accesses +
// write accesses), or 0 if the cache was never accessed.
func (s Stats) MissRate() float64 {
	total := s.ReadAccesses + s.WriteAccesses
	if total == 0 {
		return 0
	}
	return 100 * float64(s.ReadMisses+s.WriteMisses) / float64(total)
}

// Reporter is the external collaborator a cache flushes its final
// snapshot to on teardown. The core engine only produces the snapshot;
// formatting and persistence are the reporter's job.
type Reporter interface {
	Report(s Stats) error
}

// TextReporter writes the seven labeled counter lines plus the miss-rate
// line in the engine's stable statistics format. It is a no-op for a
// cache that was never accessed.
type TextReporter struct {
	W io.Writer
}

func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{W: w}
}

func (r *TextReporter) Report(s Stats) error {
	if s.ReadAccesses+s.WriteAccesses == 0 {
		return nil
	}

	lines := []struct {
		label string
		value uint64
	}{
		{"Bytes Read:           ", s.BytesRead},
		{"Bytes Written:        ", s.BytesWritten},
		{"Read Accesses:        ", s.ReadAccesses},
		{"Write Accesses:       ", s.WriteAccesses},
		{"Read Misses:          ", s.ReadMisses},
		{"Write Misses:         ", s.WriteMisses},
		{"Writebacks:           ", s.Writebacks},
	}
	for _, l := range lines {
		if _, err := fmt.Fprintf(r.W, "%s %s%d\n", s.Name, l.label, l.value); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(r.W, "%s Miss Rate:            %.3f%%\n", s.Name, s.MissRate())
	return err
}
