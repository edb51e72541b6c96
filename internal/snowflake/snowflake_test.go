package snowflake_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"equilibra/internal/snowflake"
)

func TestNew_InvalidWorkerID(t *testing.T) {
	_, err := snowflake.New(-1)
	assert.Error(t, err)

	_, err = snowflake.New(1024)
	assert.Error(t, err)
}

func TestNext_Monotonic(t *testing.T) {
	gen, err := snowflake.New(1)
	assert.NoError(t, err)

	prev := gen.Next()
	for i := 0; i < 10000; i++ {
		id := gen.Next()
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestNext_UniqueUnderConcurrency(t *testing.T) {
	gen, err := snowflake.New(2)
	assert.NoError(t, err)

	const workers = 8
	const perWorker = 5000

	var mu sync.Mutex
	seen := make(map[int64]struct{}, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids := make([]int64, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				ids = append(ids, gen.Next())
			}
			mu.Lock()
			defer mu.Unlock()
			for _, id := range ids {
				seen[id] = struct{}{}
			}
		}()
	}
	wg.Wait()

	assert.Len(t, seen, workers*perWorker)
}
