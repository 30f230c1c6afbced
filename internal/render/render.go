package render

import (
	"fmt"
	"hash/fnv"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"strconv"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// jpegQuality is used for all rendered review samples.
const jpegQuality = 90

// Cache provides thread-safe caching of decoded source images, so that
// several locations sampled from the same image share one disk read.
//
// Cached images stay in memory until Clear; a review export touches each
// source image a handful of times at most, so no eviction policy is needed.
type Cache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewCache creates an empty image cache ready for concurrent use.
func NewCache() *Cache {
	return &Cache{images: make(map[string]image.Image)}
}

// Load retrieves an image from the cache or decodes it from disk. Supported
// formats are PNG, JPEG, and GIF. The exact path string is the cache key.
func (c *Cache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// Clear drops all cached images.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Box describes one bounding box to draw.
type Box struct {
	// BBox is [x_min, y_min, width, height] relative to the image size.
	BBox []float64

	// Category selects the stroke color.
	Category string

	// LineWidth is the stroke width in pixels.
	LineWidth int

	// TargetWidth, when positive, downscales the image to this width before
	// drawing. Aspect ratio is preserved.
	TargetWidth int
}

// DrawBox returns a copy of img with the box stroked onto it.
func DrawBox(img image.Image, box Box) image.Image {
	if box.TargetWidth > 0 && img.Bounds().Dx() > box.TargetWidth {
		img = imaging.Resize(img, box.TargetWidth, 0, imaging.Lanczos)
	}

	dc := gg.NewContextForImage(img)
	w := float64(dc.Width())
	h := float64(dc.Height())

	dc.SetColor(categoryColor(box.Category))
	dc.SetLineWidth(float64(box.LineWidth))
	dc.DrawRectangle(box.BBox[0]*w, box.BBox[1]*h, box.BBox[2]*w, box.BBox[3]*h)
	dc.Stroke()

	return dc.Image()
}

// BoxToFile loads inPath through the cache, draws the box, and saves the
// result as a JPEG at outPath.
func BoxToFile(cache *Cache, inPath, outPath string, box Box) error {
	img, err := cache.Load(inPath)
	if err != nil {
		return err
	}
	out := DrawBox(img, box)
	if err := imgio.Save(outPath, out, imgio.JPEGEncoder(jpegQuality)); err != nil {
		return fmt.Errorf("failed to save rendered sample: %w", err)
	}
	return nil
}

// palette holds the category stroke colors; categories cycle through it by
// numeric id so colors stay stable across runs.
var palette = mustPalette(
	"#E31A1C", // red
	"#1F78B4", // blue
	"#33A02C", // green
	"#FF7F00", // orange
	"#6A3D9A", // purple
	"#B15928", // brown
	"#A6CEE3", // light blue
	"#FB9A99", // pink
)

func mustPalette(hexes ...string) []colorful.Color {
	colors := make([]colorful.Color, len(hexes))
	for i, h := range hexes {
		c, err := colorful.Hex(h)
		if err != nil {
			panic(err)
		}
		colors[i] = c
	}
	return colors
}

func categoryColor(category string) colorful.Color {
	i, err := strconv.Atoi(category)
	if err != nil {
		h := fnv.New32a()
		h.Write([]byte(category))
		i = int(h.Sum32())
	}
	if i < 0 {
		i = -i
	}
	return palette[i%len(palette)]
}
