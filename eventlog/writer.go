package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"sync"
)

// Writer appends Entry records to a flat binary file, the authoritative
// replay source (P2). It is the binary analogue of the teacher's
// EventLogWriter (JSONL append), kept single-writer/mutex-serialized the
// same way.
type Writer struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	seq  uint32
	tick uint64
	init bool
}

// Open opens (creating if needed) the flat log at path for appending.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &Writer{f: f, w: bufio.NewWriter(f)}, nil
}

// Append writes one entry, assigning it the next sequence number within
// its tick. seq resets to 0 on the first Append call for a new tick
// (P6: "event log seq strictly increases within a tick"), so callers
// must append in tick order — the kernel's single-threaded stage
// pipeline guarantees this naturally.
func (w *Writer) Append(tick uint64, kind Kind, payload []byte) (Entry, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.init || tick != w.tick {
		w.tick = tick
		w.seq = 0
		w.init = true
	}
	e := Entry{Tick: tick, Seq: w.seq, Kind: kind, Payload: payload}
	w.seq++

	if _, err := w.w.Write(e.Encode()); err != nil {
		return Entry{}, fmt.Errorf("eventlog: append tick=%d seq=%d: %w", tick, e.Seq, err)
	}
	return e, nil
}

// Flush forces buffered entries to the underlying file; the kernel calls
// this at checkpoint/tick-seal boundaries (spec.md §5 "suspension points
// are ... at well-defined checkpoints (snapshot write, event-log flush)").
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		return fmt.Errorf("eventlog: flush: %w", err)
	}
	return w.f.Sync()
}

// Close flushes and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return w.f.Close()
}

// CheckpointPayload builds the payload for a KindCheckpoint entry: a
// content hash over core state (spec.md §4.9).
func CheckpointPayload(contentHash [32]byte) []byte {
	return contentHash[:]
}
