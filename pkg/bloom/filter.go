package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Filter is a goroutine-safe in-process bloom filter keyed by strings.
// Test never returns false for a key that was added.
type Filter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// New sizes the filter for expected elements at the given false positive rate
func New(expected uint, falsePositiveRate float64) *Filter {
	if expected == 0 {
		expected = 100000
	}
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		falsePositiveRate = 0.01
	}
	return &Filter{filter: bloom.NewWithEstimates(expected, falsePositiveRate)}
}

// Add records key
func (f *Filter) Add(key string) {
	f.mu.Lock()
	f.filter.AddString(key)
	f.mu.Unlock()
}

// Test reports whether key may have been added
func (f *Filter) Test(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(key)
}

// ApproximatedSize estimates the number of distinct keys added
func (f *Filter) ApproximatedSize() uint32 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.ApproximatedSize()
}

// Reset empties the filter
func (f *Filter) Reset() {
	f.mu.Lock()
	f.filter.ClearAll()
	f.mu.Unlock()
}
