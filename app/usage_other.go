//go:build !unix

package app

import "runtime"

type memUsage struct{ heap, rss uint64 }

func sampleMemoryAndCPU() (mem memUsage, cpu float64) {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	mem.heap = ms.HeapAlloc
	mem.rss = ms.Sys
	return mem, 0
}
