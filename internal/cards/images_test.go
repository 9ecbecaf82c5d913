package cards

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestImageCacheDownloadsOnce(t *testing.T) {
	data := pngBytes(t, 488, 680)
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer srv.Close()

	ic := NewImageCache(time.Second, 4, 244)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			img, err := ic.Get(ctx, srv.URL+"/bolt.png")
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			if b := img.Bounds(); b.Dx() != 244 || b.Dy() != 340 {
				t.Errorf("size = %v, want 244x340", b.Size())
			}
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt32(&requests); got != 1 {
		t.Errorf("requests = %d, want 1", got)
	}
	stats := ic.Stats()
	if stats.Misses != 1 || stats.Hits != 4 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestImageCacheEvictsOldest(t *testing.T) {
	data := pngBytes(t, 10, 14)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	ic := NewImageCache(time.Second, 2, 0)
	ctx := context.Background()
	for _, p := range []string{"/a", "/b", "/c"} {
		if _, err := ic.Get(ctx, srv.URL+p); err != nil {
			t.Fatal(err)
		}
	}
	if ic.Len() != 2 || ic.Stats().Evictions != 1 {
		t.Errorf("len = %d, stats = %+v", ic.Len(), ic.Stats())
	}

	ic.Clear()
	if ic.Len() != 0 {
		t.Error("Clear left entries behind")
	}
}

func TestImageCacheFailures(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	data := pngBytes(t, 10, 14)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.NotFound(w, r)
			return
		}
		w.Write(data)
	}))
	defer srv.Close()

	ic := NewImageCache(time.Second, 4, 0)
	ctx := context.Background()

	if _, err := ic.Get(ctx, ""); err == nil {
		t.Error("expected error for empty url")
	}
	if _, err := ic.Get(ctx, srv.URL+"/missing"); err == nil {
		t.Fatal("expected error for 404")
	}
	if ic.Len() != 0 || ic.Stats().Failures != 1 {
		t.Errorf("failed entry kept: len=%d stats=%+v", ic.Len(), ic.Stats())
	}

	// failures are not cached
	fail.Store(false)
	if _, err := ic.Get(ctx, srv.URL+"/missing"); err != nil {
		t.Errorf("retry failed: %v", err)
	}
}
