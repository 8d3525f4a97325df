package lib

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCollectionConcurrentStore(t *testing.T) {
	col := NewCollection[int]()
	repeats := 1000

	wg := sync.WaitGroup{}
	for i := 0; i < repeats; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			col.Store(fmt.Sprintf("item-%d", i), i)
		}(i)
	}
	wg.Wait()

	require.Equal(t, repeats, col.Len())

	v, ok := col.Load("item-42")
	require.True(t, ok)
	require.Equal(t, 42, v)
}
