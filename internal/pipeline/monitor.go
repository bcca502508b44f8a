package pipeline

import (
	"runtime"

	"github.com/MeKo-Tech/soilsense/internal/common"
	"github.com/MeKo-Tech/soilsense/internal/mempool"
)

// RuntimeStats combines process memory with pipeline-owned resources.
type RuntimeStats struct {
	Memory     common.MemoryStats `json:"memory"`
	Goroutines int                `json:"goroutines"`
	TensorPool mempool.Stats      `json:"tensor_pool"`
}

// RuntimeStats captures memory, goroutine and tensor pool usage.
func (p *Pipeline) RuntimeStats() RuntimeStats {
	return RuntimeStats{
		Memory:     common.GetMemoryStats(),
		Goroutines: runtime.NumGoroutine(),
		TensorPool: p.pre.PoolStats(),
	}
}
