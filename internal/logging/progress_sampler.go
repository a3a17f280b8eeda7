package logging

// ProgressSampler thins out progress logs for long loops: it reports true only
// when the completed share of the work enters a new percentage bucket.
type ProgressSampler struct {
	bucketSize float64
	lastBucket int
}

// NewProgressSampler constructs a sampler with buckets of bucketSize percent
// (default 10).
func NewProgressSampler(bucketSize float64) *ProgressSampler {
	if bucketSize <= 0 || bucketSize > 100 {
		bucketSize = 10
	}
	return &ProgressSampler{bucketSize: bucketSize, lastBucket: -1}
}

// ShouldLog reports whether done out of total items warrants a progress log.
// The final item always does. A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(done, total int) bool {
	if s == nil {
		return true
	}
	if total <= 0 || done <= 0 {
		return false
	}
	if done >= total {
		done = total
	}
	bucket := int(Percent(done, total) / s.bucketSize)
	if bucket <= s.lastBucket {
		return false
	}
	s.lastBucket = bucket
	return true
}

// Reset clears the sampler state.
func (s *ProgressSampler) Reset() {
	if s != nil {
		s.lastBucket = -1
	}
}

// Percent returns done/total as a percentage, 0 when total is not positive.
func Percent(done, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(done) * 100 / float64(total)
}
