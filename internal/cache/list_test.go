package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fedragon/status-saver/internal/models"

	"go.uber.org/zap"
)

func list(names ...string) []models.Media {
	out := make([]models.Media, len(names))
	for i, n := range names {
		out[i] = models.Media{Location: models.FileLocation("/statuses/" + n), DisplayName: n}
	}
	return out
}

func TestPutAndGet(t *testing.T) {
	c := NewListCache(zap.NewNop())

	if _, ok := c.Get("/statuses"); ok {
		t.Fatalf("Expected an empty cache")
	}

	c.Put("/statuses", list("a.jpg"))
	c.Put("/statuses", list("b.jpg", "c.mp4"))

	got, ok := c.Get("/statuses")
	if !ok || len(got) != 2 || got[0].DisplayName != "b.jpg" {
		t.Errorf("Expected the last written list but got %v", got)
	}

	c.Delete("/statuses")
	if _, ok := c.Get("/statuses"); ok {
		t.Errorf("Expected deleted key to be gone")
	}

	c.Put("/a", list("a.jpg"))
	c.Put("/b", list("b.jpg"))
	c.Clear()
	if _, ok := c.Get("/a"); ok {
		t.Errorf("Expected cleared cache to be empty")
	}
}

func TestRemove(t *testing.T) {
	c := NewListCache(zap.NewNop())
	original := list("a.jpg", "b.jpg", "c.mp4")
	c.Put("saved", original)

	c.Remove("saved", original[1].Location)

	got, _ := c.Get("saved")
	if len(got) != 2 || got[0].DisplayName != "a.jpg" || got[1].DisplayName != "c.mp4" {
		t.Errorf("Expected b.jpg to be removed but got %v", got)
	}
	if original[1].DisplayName != "b.jpg" {
		t.Errorf("Expected the original list not to be modified")
	}

	c.Remove("missing", original[0].Location)
	if _, ok := c.Get("missing"); ok {
		t.Errorf("Expected removing from a missing key not to create it")
	}
}

func TestConcurrentRemoveKeepsEveryRemoval(t *testing.T) {
	c := NewListCache(zap.NewNop())

	names := make([]string, 50)
	for i := range names {
		names[i] = fmt.Sprintf("%02d.jpg", i)
	}
	media := list(names...)
	c.Put("saved", media)

	var wg sync.WaitGroup
	for _, m := range media {
		wg.Add(1)
		go func(loc models.Location) {
			defer wg.Done()
			c.Remove("saved", loc)
		}(m.Location)
	}
	wg.Wait()

	got, ok := c.Get("saved")
	if !ok || len(got) != 0 {
		t.Errorf("Expected every item to be removed but %v are left", len(got))
	}
}

func TestGetOrLoad(t *testing.T) {
	c := NewListCache(zap.NewNop())

	var loads int32
	load := func(context.Context) ([]models.Media, error) {
		atomic.AddInt32(&loads, 1)
		time.Sleep(10 * time.Millisecond)
		return list("a.jpg"), nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.GetOrLoad(context.Background(), "/statuses", load); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if _, err := c.GetOrLoad(context.Background(), "/statuses", load); err != nil {
		t.Fatal(err)
	}

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("Expected a single load but got %v", n)
	}
}

func TestGetOrLoadDoesNotCacheFailures(t *testing.T) {
	c := NewListCache(zap.NewNop())
	boom := errors.New("boom")

	_, err := c.GetOrLoad(context.Background(), "/statuses", func(context.Context) ([]models.Media, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Expected %v but got %v instead", boom, err)
	}
	if _, ok := c.Get("/statuses"); ok {
		t.Errorf("Expected failed load not to be cached")
	}
}
