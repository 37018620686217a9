package concurrent

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// ForEach runs the action for each element in a separate goroutine and waits
// for all of them. If any action returns an error, the first one encountered
// is returned.
func ForEach[T any](items []T, action func(T) error) error {
	eg := errgroup.Group{}
	for _, item := range items {
		eg.Go(func() error {
			return action(item)
		})
	}
	return eg.Wait()
}

// FanOut runs the action for each element in a separate goroutine and waits
// for all of them, ignoring any errors the actions encounter.
func FanOut[T any](items []T, action func(T) error) {
	wg := sync.WaitGroup{}
	for _, item := range items {
		wg.Add(1)
		go func(item T) {
			defer wg.Done()
			_ = action(item)
		}(item)
	}
	wg.Wait()
}
