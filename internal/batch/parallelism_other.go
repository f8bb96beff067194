//go:build !linux

package batch

import "runtime"

func availableParallelism() int {
	return runtime.NumCPU()
}
