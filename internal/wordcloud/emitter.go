// Package wordcloud turns a normalized corpus into a word cloud image on disk.
package wordcloud

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"os"
	"path/filepath"
)

// FileName is the image written into the output directory.
const FileName = "wordcloud.png"

const (
	DefaultWidth    = 2000
	DefaultHeight   = 2000
	DefaultMaxWords = 200
)

// ErrRender marks failures of the rendering step.
var ErrRender = errors.New("render word cloud")

// RenderError explains why no image could be produced.
type RenderError struct {
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrRender, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrRender, e.Reason)
}

func (e *RenderError) Unwrap() error { return e.Err }

func (e *RenderError) Is(target error) bool { return target == ErrRender }

// Options controls the rendered image.
type Options struct {
	Width      int
	Height     int
	Background color.Color
	Colors     []color.Color
	FontPath   string
	MaxWords   int
}

// Renderer draws a frequency table.
type Renderer interface {
	Render(words map[string]int, opts Options) (image.Image, error)
}

// Emitter renders corpora and saves them as PNG files.
type Emitter struct {
	renderer Renderer
	opts     Options
}

// NewEmitter returns an Emitter. A nil renderer uses the default layout
// engine.
func NewEmitter(r Renderer, opts Options) *Emitter {
	if r == nil {
		r = NewCloudRenderer()
	}
	if opts.Background == nil {
		opts.Background = color.White
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = DefaultMaxWords
	}
	return &Emitter{renderer: r, opts: opts}
}

// Emit renders corpus at width x height and writes it to FileName inside
// outputDir, returning the written path. The directory must already exist.
func (e *Emitter) Emit(corpus, outputDir string, width, height int) (string, error) {
	if width <= 0 || height <= 0 {
		return "", &RenderError{Reason: fmt.Sprintf("invalid size %dx%d", width, height)}
	}
	words := Frequencies(corpus, e.opts.MaxWords)
	if len(words) == 0 {
		return "", &RenderError{Reason: "no words left to draw"}
	}

	opts := e.opts
	opts.Width = width
	opts.Height = height

	img, err := e.renderer.Render(toMap(words), opts)
	if err != nil {
		var rErr *RenderError
		if errors.As(err, &rErr) {
			return "", err
		}
		return "", &RenderError{Reason: "renderer failed", Err: err}
	}

	path := filepath.Join(outputDir, FileName)
	if err := save(img, path); err != nil {
		return "", err
	}
	log.Printf("[wordcloud] wrote %s (%d words, %dx%d)", path, len(words), width, height)
	return path, nil
}

func save(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image: %w", err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image: %w", err)
	}
	return nil
}
