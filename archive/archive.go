// Package archive provides KPI-sample sinks the kernel writes to purely
// for outside observation — never read back by the kernel itself
// (spec.md §1 excludes telemetry sinks from the kernel's own scope; this
// package is the "outer collaborator" that consumes kernel.Archiver).
package archive

import "github.com/ftahirops/colonysim/model"

// Sink archives one tick's KPI sample. It matches kernel.Archiver's shape
// exactly so any Sink can be passed straight to kernel.New without the
// kernel package importing this one.
type Sink interface {
	Archive(sample model.KPISample) error
}

// Discard is a Sink that does nothing, the default when no archiver is
// configured.
type Discard struct{}

// Archive implements Sink.
func (Discard) Archive(model.KPISample) error { return nil }

// Multi fans a sample out to every sink in order, returning the first
// error encountered (later sinks still run, so one broken sink never
// silently starves the others of a reading).
type Multi []Sink

// Archive implements Sink.
func (m Multi) Archive(sample model.KPISample) error {
	var first error
	for _, s := range m {
		if err := s.Archive(sample); err != nil && first == nil {
			first = err
		}
	}
	return first
}
