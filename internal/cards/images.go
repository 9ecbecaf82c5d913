package cards

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/image/draw"
)

const (
	// DefaultImageCacheSize is how many card images stay in memory
	DefaultImageCacheSize = 64
	maxImageBytes         = 8 << 20
)

// cachedImage holds one downloaded card image
type cachedImage struct {
	mu    sync.Mutex
	image image.Image
}

// ImageCache downloads card art once and keeps it in memory, evicting the
// least recently added entry when full.
type ImageCache struct {
	httpClient *http.Client
	maxEntries int
	maxWidth   int

	mu     sync.Mutex
	images map[string]*cachedImage
	order  []string
	stats  ImageCacheStats
}

// ImageCacheStats tracks cache performance
type ImageCacheStats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Failures  int64 `json:"failures"`
	Evictions int64 `json:"evictions"`
}

// NewImageCache creates a cache. Images wider than maxWidth are scaled
// down when loaded; 0 keeps them as downloaded.
func NewImageCache(timeout time.Duration, maxEntries, maxWidth int) *ImageCache {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxEntries <= 0 {
		maxEntries = DefaultImageCacheSize
	}
	return &ImageCache{
		httpClient: &http.Client{Timeout: timeout},
		maxEntries: maxEntries,
		maxWidth:   maxWidth,
		images:     make(map[string]*cachedImage),
	}
}

// Get returns the image at url, downloading it on first use
func (ic *ImageCache) Get(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, fmt.Errorf("card has no image")
	}

	ic.mu.Lock()
	entry, ok := ic.images[url]
	if !ok {
		entry = &cachedImage{}
		ic.images[url] = entry
		ic.order = append(ic.order, url)
		ic.evictLocked()
	}
	ic.mu.Unlock()

	// one download per url; concurrent callers wait for it
	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.image != nil {
		ic.count(func(s *ImageCacheStats) { s.Hits++ })
		return entry.image, nil
	}

	img, err := ic.fetch(ctx, url)
	if err != nil {
		ic.count(func(s *ImageCacheStats) { s.Failures++ })
		ic.forget(url, entry)
		return nil, err
	}
	ic.count(func(s *ImageCacheStats) { s.Misses++ })
	entry.image = img
	return img, nil
}

func (ic *ImageCache) fetch(ctx context.Context, url string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build image request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := ic.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download card image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("card image request returned status %d", resp.StatusCode)
	}

	img, _, err := image.Decode(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to decode card image: %w", err)
	}
	return ic.fit(img), nil
}

// fit scales img down to maxWidth, keeping its aspect ratio
func (ic *ImageCache) fit(img image.Image) image.Image {
	b := img.Bounds()
	if ic.maxWidth <= 0 || b.Dx() <= ic.maxWidth {
		return img
	}
	h := b.Dy() * ic.maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, ic.maxWidth, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func (ic *ImageCache) evictLocked() {
	for len(ic.order) > ic.maxEntries {
		oldest := ic.order[0]
		ic.order = ic.order[1:]
		delete(ic.images, oldest)
		ic.stats.Evictions++
	}
}

// forget drops a failed entry so the next Get retries
func (ic *ImageCache) forget(url string, entry *cachedImage) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if ic.images[url] != entry {
		return
	}
	delete(ic.images, url)
	for i, u := range ic.order {
		if u == url {
			ic.order = append(ic.order[:i], ic.order[i+1:]...)
			break
		}
	}
}

func (ic *ImageCache) count(fn func(*ImageCacheStats)) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	fn(&ic.stats)
}

// Len returns how many images are cached or loading
func (ic *ImageCache) Len() int {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return len(ic.images)
}

// Stats returns cache statistics
func (ic *ImageCache) Stats() ImageCacheStats {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.stats
}

// Clear drops every cached image
func (ic *ImageCache) Clear() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.images = make(map[string]*cachedImage)
	ic.order = nil
}
