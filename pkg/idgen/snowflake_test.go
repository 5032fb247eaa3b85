package idgen

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSnowflake_RejectsInvalidWorkerID(t *testing.T) {
	_, err := NewSnowflake(-1)
	assert.Error(t, err)

	_, err = NewSnowflake(maxWorkerID + 1)
	assert.Error(t, err)

	_, err = NewSnowflake(maxWorkerID)
	assert.NoError(t, err)
}

func TestSnowflake_GenerateIsUniqueAndIncreasing(t *testing.T) {
	g, err := NewSnowflake(3)
	require.NoError(t, err)

	prev := int64(0)
	for i := 0; i < 10000; i++ {
		id := g.Generate()
		require.Greater(t, id, prev)
		assert.Equal(t, int64(3), (id>>workerIDShift)&maxWorkerID)
		prev = id
	}
}

func TestNextID_Concurrent(t *testing.T) {
	require.NoError(t, Init(5))

	const workers, perWorker = 8, 500
	ids := make(chan int64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				ids <- NextID()
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]struct{}, workers*perWorker)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %d", id)
		seen[id] = struct{}{}
	}
}

func TestGeneratedNumbersHavePrefixes(t *testing.T) {
	assert.True(t, strings.HasPrefix(GenerateTransactionNo(), "TXN"))
	assert.True(t, strings.HasPrefix(GenerateDepositNo(), "DEP"))
	assert.True(t, strings.HasPrefix(GenerateRequestID(), "REQ"))
	assert.NotEqual(t, GenerateTransactionNo(), GenerateTransactionNo())
	assert.LessOrEqual(t, len(GenerateTransactionNo()), 64)
}
