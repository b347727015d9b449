package smt

import "time"

// Stats counts what a session (or a whole pool) has done.
type Stats struct {
	Checks  int
	Sat     int
	Unsat   int
	Unknown int
	// Errors counts checks that returned an error, including those that broke
	// the session.
	Errors int

	SerializeTime time.Duration
	SolveTime     time.Duration
	// WaitTime is the time spent waiting for a free session. Only a Pool
	// records it.
	WaitTime time.Duration
}

func (s *Stats) record(v Verdict) {
	s.Checks++
	switch v {
	case Sat:
		s.Sat++
	case Unsat:
		s.Unsat++
	default:
		s.Unknown++
	}
}

func (s Stats) Add(o Stats) Stats {
	return Stats{
		Checks:        s.Checks + o.Checks,
		Sat:           s.Sat + o.Sat,
		Unsat:         s.Unsat + o.Unsat,
		Unknown:       s.Unknown + o.Unknown,
		Errors:        s.Errors + o.Errors,
		SerializeTime: s.SerializeTime + o.SerializeTime,
		SolveTime:     s.SolveTime + o.SolveTime,
		WaitTime:      s.WaitTime + o.WaitTime,
	}
}
