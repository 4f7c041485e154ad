package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFor(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 16}

	var counter int64
	seen := make([]int32, 1000)
	For(len(seen), func(i int) {
		atomic.AddInt64(&counter, 1)
		atomic.AddInt32(&seen[i], 1)
	}, cfg)

	assert.Equal(t, int64(len(seen)), counter)
	for i, s := range seen {
		require.Equal(t, int32(1), s, "index %d", i)
	}
}

func TestForChunks(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 10}

	var mu sync.Mutex
	var ranges [][2]int
	ForChunks(100, func(start, end int) {
		mu.Lock()
		defer mu.Unlock()
		ranges = append(ranges, [2]int{start, end})
	}, cfg)

	covered := 0
	for _, r := range ranges {
		assert.Less(t, r[0], r[1])
		assert.GreaterOrEqual(t, r[1]-r[0], 10)
		covered += r[1] - r[0]
	}
	assert.Equal(t, 100, covered)
	assert.Len(t, ranges, 3)
}

func TestForChunks_Sequential(t *testing.T) {
	calls := 0
	ForChunks(100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 100, end)
	}, Config{Enabled: false})
	assert.Equal(t, 1, calls)

	// Small work units stay on the calling goroutine.
	cfg := DefaultConfig()
	calls = 0
	ForChunks(cfg.MinChunkSize, func(int, int) { calls++ }, cfg)
	assert.Equal(t, 1, calls)

	ForChunks(0, func(int, int) { t.Fatal("called for empty range") }, cfg)
}

func BenchmarkFor(b *testing.B) {
	cfg := DefaultConfig()
	n := 1 << 16

	b.Run("parallel", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfg)
		}
	})

	b.Run("sequential", func(b *testing.B) {
		cfgSeq := cfg
		cfgSeq.Enabled = false
		for i := 0; i < b.N; i++ {
			var sum int64
			For(n, func(i int) {
				atomic.AddInt64(&sum, int64(i))
			}, cfgSeq)
		}
	})
}
