package pipeline

import (
	"fmt"
	"io"
)

// Report aggregates per-object validation outcomes in manifest order.
type Report struct {
	Manifest string
	Objects  []*ObjectReport
}

// Valid is the run verdict: true only if every object validates.
func (r *Report) Valid() bool {
	for _, o := range r.Objects {
		if !o.Valid() {
			return false
		}
	}
	return true
}

// Failed returns the objects that do not validate.
func (r *Report) Failed() []*ObjectReport {
	var out []*ObjectReport
	for _, o := range r.Objects {
		if !o.Valid() {
			out = append(out, o)
		}
	}
	return out
}

// WriteTo prints every object's trace followed by the run verdict.
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	var n int64
	write := func(format string, args ...any) error {
		c, err := fmt.Fprintf(w, format, args...)
		n += int64(c)
		return err
	}
	for _, o := range r.Objects {
		if err := write("%s (%s)\n", o.Key, pidOrNone(o.PID)); err != nil {
			return n, err
		}
		for _, line := range o.Trace {
			if err := write("  %s\n", line); err != nil {
				return n, err
			}
		}
	}
	verdict := "VALIDATES"
	if !r.Valid() {
		verdict = "DOES NOT VALIDATE"
	}
	err := write("Ingest of %d objects...%s\n", len(r.Objects), verdict)
	return n, err
}

func pidOrNone(pid string) string {
	if pid == "" {
		return "no pid"
	}
	return pid
}
