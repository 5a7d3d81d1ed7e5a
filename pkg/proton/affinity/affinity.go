// SPDX-FileCopyrightText: 2020 SAP SE or an SAP affiliate company and Gardener contributors
//
// SPDX-License-Identifier: Apache-2.0

// Package affinity parses a CPU affinity descriptor and applies it to an OS
// process id, and applies a niceness adjustment to a process group. The
// Python original
// shells out to the taskset/renice command-line tools (os.system(cmd) in
// mappers.py); this port uses the real syscalls (sched_setaffinity,
// setpriority) through golang.org/x/sys/unix instead.
package affinity

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Descriptor is a parsed affinity string: either a single core ("k") with
// Start==End, or an inclusive core range ("a-b") with End >= Start >= 0.
// "k" and "k-k" parse to the same Descriptor.
type Descriptor struct {
	Start int
	End   int
}

// Parse parses an affinity descriptor string of the form "k" or "a-b".
func Parse(s string) (Descriptor, error) {
	if s == "" {
		return Descriptor{}, fmt.Errorf("affinity: empty descriptor")
	}
	if !strings.Contains(s, "-") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Descriptor{}, fmt.Errorf("affinity: invalid single-core descriptor %q", s)
		}
		return Descriptor{Start: n, End: n}, nil
	}

	parts := strings.SplitN(s, "-", 2)
	a, errA := strconv.Atoi(parts[0])
	b, errB := strconv.Atoi(parts[1])
	if errA != nil || errB != nil || a < 0 || b < a {
		return Descriptor{}, fmt.Errorf("affinity: invalid range descriptor %q, want \"a-b\" with b >= a >= 0", s)
	}
	return Descriptor{Start: a, End: b}, nil
}

// Apply pins pid to every core in [Start, End] via sched_setaffinity.
func (d Descriptor) Apply(pid int) error {
	var set unix.CPUSet
	set.Zero()
	for core := d.Start; core <= d.End; core++ {
		set.Set(core)
	}
	return unix.SchedSetaffinity(pid, &set)
}

// Renice applies a single niceness adjustment to the process group pgid, the
// Go equivalent of the Python original's single `renice -n 10 -g pgid` call.
func Renice(pgid, niceness int) error {
	return unix.Setpriority(unix.PRIO_PGRP, pgid, niceness)
}
