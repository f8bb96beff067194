//go:build linux

package batch

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// availableParallelism honours the process CPU affinity mask, which is what
// containers and taskset restrict.
func availableParallelism() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
