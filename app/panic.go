package app

import (
	"fmt"
	"strings"

	"pulsar/kernel"
)

// panicHandler runs on the panicking process before the kernel terminates it.
// It logs the full stack and leaves a short note on the console.
func (s *System) panicHandler(info kernel.PanicInfo) {
	if l := s.h.Logger(); l != nil {
		l.WriteLineString(fmt.Sprintf("pulsar panic: pid=%d name=%s panic=%v", info.PID, info.Name, info.Value))
		for _, line := range strings.Split(string(info.Stack), "\n") {
			if line == "" {
				continue
			}
			l.WriteLineString(line)
		}
	}
	if s.con != nil {
		s.con.Printf("\x1b[31m*** pid %d (%s) crashed: %v ***\x1b[0m\n", info.PID, info.Name, info.Value)
	}
}
