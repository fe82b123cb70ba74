package sim

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/anthonynsimon/bild/transform"
	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// TrackConfig describes the image a Track is built from.
type TrackConfig struct {
	Image          string   `yaml:"image"`
	CollisionColor [3]uint8 `yaml:"collision_color"` // RGB of obstacle pixels
	Tolerance      uint8    `yaml:"tolerance"`       // max per-channel difference still counted as collision color
}

// DefaultTrackConfig returns the reference track: pure black pixels are walls.
func DefaultTrackConfig() TrackConfig {
	return TrackConfig{Image: "assets/track1.png"}
}

// Track is the immutable collision field. Points outside the world are obstacles.
// A Track is safe for concurrent reads.
type Track struct {
	width    int
	height   int
	obstacle []bool // row-major, width*height
}

// NewTrack builds a Track by evaluating fn for every pixel.
func NewTrack(width, height int, fn func(x, y int) bool) (*Track, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: track size must be positive, got %dx%d", ErrInvalidConfig, width, height)
	}
	t := &Track{width: width, height: height, obstacle: make([]bool, width*height)}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t.obstacle[y*width+x] = fn(x, y)
		}
	}
	return t, nil
}

// NewTrackFromImage thresholds img against the collision color. Alpha is
// ignored: pixels are compared on their non-premultiplied RGB values. The image
// bounds define the track resolution; scale before calling.
func NewTrackFromImage(img image.Image, collision color.RGBA, tolerance uint8) (*Track, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: track image is nil", ErrInvalidConfig)
	}
	b := img.Bounds()
	return NewTrack(b.Dx(), b.Dy(), func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
		return near(c.R, collision.R, tolerance) && near(c.G, collision.G, tolerance) && near(c.B, collision.B, tolerance)
	})
}

// LoadTrack decodes the configured image, resizes it to the world resolution
// when needed and thresholds it.
func LoadTrack(cfg TrackConfig, world WorldConfig) (*Track, error) {
	if cfg.Image == "" {
		return nil, fmt.Errorf("%w: track image path not provided", ErrInvalidConfig)
	}
	if world.Width <= 0 || world.Height <= 0 {
		return nil, fmt.Errorf("%w: world size must be positive, got %dx%d", ErrInvalidConfig, world.Width, world.Height)
	}
	f, err := os.Open(cfg.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: opening track image: %v", ErrInvalidConfig, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding track image %s: %v", ErrInvalidConfig, cfg.Image, err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: track image %s is empty", ErrInvalidConfig, cfg.Image)
	}
	if b.Dx() != world.Width || b.Dy() != world.Height {
		logrus.Debugf("scaling %s track %s from %dx%d to %dx%d", format, cfg.Image, b.Dx(), b.Dy(), world.Width, world.Height)
		img = transform.Resize(img, world.Width, world.Height, transform.Linear)
	}
	c := cfg.CollisionColor
	return NewTrackFromImage(img, color.RGBA{R: c[0], G: c[1], B: c[2], A: 0xff}, cfg.Tolerance)
}

// Width returns the track width in world units.
func (t *Track) Width() int { return t.width }

// Height returns the track height in world units.
func (t *Track) Height() int { return t.height }

// IsObstacle reports whether the continuous point (x, y) lies on an obstacle pixel.
func (t *Track) IsObstacle(x, y float64) bool {
	if !(x >= 0 && x < float64(t.width) && y >= 0 && y < float64(t.height)) {
		return true
	}
	return t.obstacle[int(y)*t.width+int(x)]
}

// IsObstacleAt reports whether pixel (px, py) is an obstacle.
func (t *Track) IsObstacleAt(px, py int) bool {
	if px < 0 || px >= t.width || py < 0 || py >= t.height {
		return true
	}
	return t.obstacle[py*t.width+px]
}

// ObstacleCount returns the number of obstacle pixels.
func (t *Track) ObstacleCount() int {
	n := 0
	for _, o := range t.obstacle {
		if o {
			n++
		}
	}
	return n
}

// DrivableFraction returns the share of pixels that are drivable.
func (t *Track) DrivableFraction() float64 {
	total := len(t.obstacle)
	return float64(total-t.ObstacleCount()) / float64(total)
}

func near(a, b, tolerance uint8) bool {
	d := int(a) - int(b)
	if d < 0 {
		d = -d
	}
	return d <= int(tolerance)
}

// floorCoord converts a world coordinate to a pixel index. Non-finite input maps
// to -1, which every track treats as outside the world.
func floorCoord(v float64) int {
	if math.IsNaN(v) || v < -1 || v > math.MaxInt32 {
		return -1
	}
	return int(math.Floor(v))
}
