package eventlog

import (
	"fmt"
	"os"
)

// ReadAll decodes every Entry in the flat log at path, in file order
// (already (tick, seq)-ordered since entries are only ever appended).
func ReadAll(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventlog: read %s: %w", path, err)
	}
	var out []Entry
	for len(data) > 0 {
		e, n, ok := Decode(data)
		if !ok {
			return nil, fmt.Errorf("eventlog: truncated entry in %s after %d valid entries", path, len(out))
		}
		out = append(out, e)
		data = data[n:]
	}
	return out, nil
}

// FromTick filters entries to those at or after fromTick, in order —
// the in-memory fallback for "replay from tick N" when no index is
// available or needs rebuilding.
func FromTick(entries []Entry, fromTick uint64) []Entry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.Tick >= fromTick {
			out = append(out, e)
		}
	}
	return out
}
