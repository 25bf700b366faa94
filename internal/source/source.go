package source

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/ivlev/quickcut/internal/system"
)

type Source interface {
	PageCount() int
	GetPageDimensions(index int) (width, height float64, err error)
	RenderPage(index int, width, height int) (*image.RGBA, error)
	Close() error
}

// SlideSource loads slide images for the compositor.
type SlideSource struct {
	slides []Slide
}

func NewSlideSource(slides []Slide) *SlideSource {
	return &SlideSource{slides: slides}
}

func (s *SlideSource) PageCount() int {
	return len(s.slides)
}

func (s *SlideSource) GetPageDimensions(index int) (float64, float64, error) {
	if index < 0 || index >= len(s.slides) {
		return 0, 0, fmt.Errorf("slide %d out of range", index)
	}
	f, err := os.Open(s.slides[index].ImagePath)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, err
	}
	return float64(cfg.Width), float64(cfg.Height), nil
}

// RenderPage decodes the slide image and letterboxes it into a width x height
// canvas. The returned image comes from the shared pool; hand it back with
// system.PutImage once it has been written out.
func (s *SlideSource) RenderPage(index int, width, height int) (*image.RGBA, error) {
	if index < 0 || index >= len(s.slides) {
		return nil, fmt.Errorf("slide %d out of range", index)
	}
	f, err := os.Open(s.slides[index].ImagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.slides[index].ImagePath, err)
	}

	canvas := system.GetImage(image.Rect(0, 0, width, height))
	draw.Draw(canvas, canvas.Bounds(), image.Black, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(canvas, FitRect(img.Bounds(), width, height), img, img.Bounds(), draw.Src, nil)
	return canvas, nil
}

func (s *SlideSource) Close() error {
	return nil
}

// FitRect returns the largest rectangle with the aspect ratio of src that fits
// into width x height, centred.
func FitRect(src image.Rectangle, width, height int) image.Rectangle {
	sw, sh := src.Dx(), src.Dy()
	if sw == 0 || sh == 0 {
		return image.Rect(0, 0, width, height)
	}
	var w, h int
	if sw*height > sh*width {
		w, h = width, sh*width/sw
	} else {
		w, h = sw*height/sh, height
	}
	x := (width - w) / 2
	y := (height - h) / 2
	return image.Rect(x, y, x+w, y+h)
}
