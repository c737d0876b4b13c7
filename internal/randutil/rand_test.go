package randutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIsDeterministic(t *testing.T) {
	a := New(99)
	b := New(99)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.IntN(1000), b.IntN(1000))
	}
}

func TestSourceConcurrentUse(t *testing.T) {
	src := NewSource(1)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v := src.IntN(3)
				assert.GreaterOrEqual(t, v, 0)
				assert.Less(t, v, 3)
			}
		}()
	}
	wg.Wait()
}

func TestSourceShuffleKeepsElements(t *testing.T) {
	src := NewSource(5)
	values := []int{1, 2, 3, 4, 5, 6}
	src.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5, 6}, values)
}
