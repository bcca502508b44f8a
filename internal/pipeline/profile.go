package pipeline

import (
	"sync/atomic"
	"time"
)

// Profiler accumulates run counts and stage timings across requests.
type Profiler struct {
	accepted    atomic.Int64
	rejected    atomic.Int64
	decodeError atomic.Int64
	failed      atomic.Int64

	decodeNs     atomic.Int64
	preprocessNs atomic.Int64
	inferenceNs  atomic.Int64
	totalNs      atomic.Int64
}

// ProfileSnapshot is a point-in-time copy of the profiler counters.
type ProfileSnapshot struct {
	Runs          int64            `json:"runs"`
	ByStatus      map[Status]int64 `json:"by_status"`
	AvgDecode     time.Duration    `json:"avg_decode_ns"`
	AvgPreprocess time.Duration    `json:"avg_preprocess_ns"`
	AvgInference  time.Duration    `json:"avg_inference_ns"`
	AvgTotal      time.Duration    `json:"avg_total_ns"`
}

// Record adds one finished run.
func (p *Profiler) Record(r *Result) {
	if p == nil || r == nil {
		return
	}
	switch r.Status {
	case StatusAccepted:
		p.accepted.Add(1)
	case StatusRejected:
		p.rejected.Add(1)
	case StatusDecodeError:
		p.decodeError.Add(1)
	default:
		p.failed.Add(1)
	}
	p.decodeNs.Add(r.Processing.DecodeNs)
	p.preprocessNs.Add(r.Processing.PreprocessNs)
	p.inferenceNs.Add(r.Processing.InferenceNs)
	p.totalNs.Add(r.Processing.TotalNs)
}

// Snapshot returns the current counters and per-run averages.
func (p *Profiler) Snapshot() ProfileSnapshot {
	s := ProfileSnapshot{
		ByStatus: map[Status]int64{
			StatusAccepted:    p.accepted.Load(),
			StatusRejected:    p.rejected.Load(),
			StatusDecodeError: p.decodeError.Load(),
			StatusFailed:      p.failed.Load(),
		},
	}
	for _, n := range s.ByStatus {
		s.Runs += n
	}
	if s.Runs == 0 {
		return s
	}
	avg := func(v *atomic.Int64) time.Duration { return time.Duration(v.Load() / s.Runs) }
	s.AvgDecode = avg(&p.decodeNs)
	s.AvgPreprocess = avg(&p.preprocessNs)
	s.AvgInference = avg(&p.inferenceNs)
	s.AvgTotal = avg(&p.totalNs)
	return s
}

// Stats returns the cumulative profiler snapshot.
func (p *Pipeline) Stats() ProfileSnapshot { return p.profiler.Snapshot() }
