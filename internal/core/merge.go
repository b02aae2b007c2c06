package core

import (
	"context"
	"sync"

	"github.com/fedragon/status-saver/internal/models"
)

// fanIn forwards the library items reported by every save worker on a single channel, which is
// closed once all workers are done or ctx is cancelled.
func fanIn(ctx context.Context, workers ...<-chan models.Media) <-chan models.Media {
	out := make(chan models.Media)

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(saved <-chan models.Media) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case m, ok := <-saved:
					if !ok {
						return
					}
					select {
					case <-ctx.Done():
						return
					case out <- m:
					}
				}
			}
		}(w)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out
}
