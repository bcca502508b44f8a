// Package mempool recycles large float32 buffers used for model input tensors.
package mempool

import (
	"sync"
	"sync/atomic"
)

// Float32Pool hands out []float32 buffers of one fixed length. A 1024x1024
// RGB tensor is 12 MiB, so reusing buffers across requests keeps GC quiet.
type Float32Pool struct {
	size   int
	pool   sync.Pool
	gets   atomic.Int64
	misses atomic.Int64
	puts   atomic.Int64
}

// Stats reports pool usage counters.
type Stats struct {
	Size   int   `json:"size"`
	Gets   int64 `json:"gets"`
	Misses int64 `json:"misses"`
	Puts   int64 `json:"puts"`
}

// NewFloat32Pool creates a pool of buffers with exactly size elements.
func NewFloat32Pool(size int) *Float32Pool {
	if size < 0 {
		size = 0
	}
	return &Float32Pool{size: size}
}

// Size is the length of every buffer returned by Get.
func (p *Float32Pool) Size() int { return p.size }

// Get returns a buffer of length Size. Contents are unspecified.
func (p *Float32Pool) Get() []float32 {
	p.gets.Add(1)
	if v, ok := p.pool.Get().(*[]float32); ok && cap(*v) >= p.size {
		return (*v)[:p.size]
	}
	p.misses.Add(1)
	return make([]float32, p.size)
}

// Put returns a buffer to the pool. Buffers of the wrong capacity and nil
// slices are dropped.
func (p *Float32Pool) Put(buf []float32) {
	if buf == nil || cap(buf) < p.size {
		return
	}
	p.puts.Add(1)
	buf = buf[:p.size]
	p.pool.Put(&buf)
}

// Stats returns a snapshot of the usage counters.
func (p *Float32Pool) Stats() Stats {
	return Stats{
		Size:   p.size,
		Gets:   p.gets.Load(),
		Misses: p.misses.Load(),
		Puts:   p.puts.Load(),
	}
}
