package lib

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := NewKeyLock()
	counter := 0
	repeats := 1000

	wg := sync.WaitGroup{}
	for i := 0; i < repeats; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kl.Lock("job-1")
			counter++
			kl.Unlock("job-1")
		}()
	}
	wg.Wait()

	require.Equal(t, repeats, counter)
}

func TestKeyLockIndependentKeys(t *testing.T) {
	kl := NewKeyLock()
	kl.Lock("job-1")
	defer kl.Unlock("job-1")

	done := make(chan struct{})
	go func() {
		kl.Lock("job-2")
		kl.Unlock("job-2")
		close(done)
	}()

	<-done
}
