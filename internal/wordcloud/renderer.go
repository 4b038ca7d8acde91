package wordcloud

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/psykhi/wordclouds"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/gofont/goregular"
)

// DefaultPalette colors the words when no palette is configured.
var DefaultPalette = []color.Color{
	color.RGBA{0x1b, 0x1b, 0x3a, 0xff},
	color.RGBA{0x69, 0x3a, 0xbb, 0xff},
	color.RGBA{0x2e, 0x86, 0xab, 0xff},
	color.RGBA{0xc7, 0x3e, 0x1d, 0xff},
	color.RGBA{0x3b, 0x8e, 0x5a, 0xff},
	color.RGBA{0xa2, 0x3b, 0x72, 0xff},
}

// CloudRenderer lays words out with the wordclouds package.
type CloudRenderer struct {
	fallbackOnce sync.Once
	fallbackPath string
	fallbackErr  error
}

func NewCloudRenderer() *CloudRenderer {
	return &CloudRenderer{}
}

func (r *CloudRenderer) Render(words map[string]int, opts Options) (img image.Image, err error) {
	if len(words) == 0 {
		return nil, &RenderError{Reason: "no words left to draw"}
	}

	fontPath, err := r.fontPath(opts.FontPath)
	if err != nil {
		return nil, err
	}

	colors := opts.Colors
	if len(colors) == 0 {
		colors = DefaultPalette
	}
	bg := opts.Background
	if bg == nil {
		bg = color.White
	}

	// the layout engine panics on unreadable fonts and degenerate sizes
	defer func() {
		if p := recover(); p != nil {
			img = nil
			err = &RenderError{Reason: fmt.Sprintf("layout panicked: %v", p)}
		}
	}()

	wc := wordclouds.NewWordcloud(
		words,
		wordclouds.FontFile(fontPath),
		wordclouds.Width(opts.Width),
		wordclouds.Height(opts.Height),
		wordclouds.BackgroundColor(bg),
		wordclouds.Colors(colors),
		wordclouds.FontMaxSize(maxFontSize(opts.Width, opts.Height)),
		wordclouds.FontMinSize(10),
	)
	return wc.Draw(), nil
}

func (r *CloudRenderer) fontPath(configured string) (string, error) {
	if configured != "" {
		info, err := os.Stat(configured)
		if err != nil {
			return "", &RenderError{Reason: "font unavailable", Err: err}
		}
		if info.IsDir() {
			return "", &RenderError{Reason: fmt.Sprintf("font path %s is a directory", configured)}
		}
		return configured, nil
	}

	r.fallbackOnce.Do(func() {
		path := filepath.Join(os.TempDir(), "chatstats-goregular.ttf")
		if err := os.WriteFile(path, goregular.TTF, 0644); err != nil {
			r.fallbackErr = &RenderError{Reason: "write fallback font", Err: err}
			return
		}
		log.Printf("[wordcloud] no font configured, using Go Regular (no Arabic-script glyphs)")
		r.fallbackPath = path
	})
	return r.fallbackPath, r.fallbackErr
}

func maxFontSize(width, height int) int {
	side := width
	if height < side {
		side = height
	}
	size := side / 8
	if size < 20 {
		size = 20
	}
	return size
}

// ParseColor accepts a CSS color name such as "white" or a hex value in
// #rgb or #rrggbb form.
func ParseColor(s string) (color.Color, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return color.White, nil
	}
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return nil, fmt.Errorf("unknown color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("unknown color %q", s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
