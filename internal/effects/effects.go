package effects

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/ivlev/quickcut/internal/config"
)

type Effect interface {
	GenerateFilter(params config.SegmentParams) string
}

// New picks the camera effect for a zoom mode; "none" keeps the slide still.
func New(zoomMode string) Effect {
	switch strings.ToLower(zoomMode) {
	case "", "none", "static":
		return &StaticEffect{}
	}
	return &ZoomEffect{}
}

// StaticEffect letterboxes the slide into the frame and holds it. The encoder
// receives a single frame, so zoompan with a constant zoom does the repeating.
type StaticEffect struct{}

func (e *StaticEffect) GenerateFilter(p config.SegmentParams) string {
	return fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,zoompan=z=1:d=%d:s=%dx%d:fps=%d,setsar=1",
		p.Width, p.Height, p.Width, p.Height, frameCount(p), p.Width, p.Height, p.FPS,
	)
}

func frameCount(p config.SegmentParams) int {
	frames := int(p.Duration*float64(p.FPS) + 0.5)
	if frames < 1 {
		frames = 1
	}
	return frames
}

// ZoomEffect slowly pushes into one corner (or the center) of the slide and
// settles back to 1:1 before the outgoing transition starts.
type ZoomEffect struct{}

func (e *ZoomEffect) GenerateFilter(p config.SegmentParams) string {
	mode := strings.ToLower(p.ZoomMode)
	if mode == "random" {
		modes := []string{"center", "top-left", "top-right", "bottom-left", "bottom-right"}
		r := rand.New(rand.NewSource(int64(p.PageIndex*99 + 7)))
		mode = modes[r.Intn(len(modes))]
	}

	var zoomX, zoomY string
	switch mode {
	case "top-left":
		zoomX, zoomY = "0", "0"
	case "top-right":
		zoomX, zoomY = "iw-(iw/zoom)", "0"
	case "bottom-left":
		zoomX, zoomY = "0", "ih-(ih/zoom)"
	case "bottom-right":
		zoomX, zoomY = "iw-(iw/zoom)", "ih-(ih/zoom)"
	default:
		zoomX, zoomY = "iw/2-(iw/zoom/2)", "ih/2-(ih/zoom/2)"
	}

	fFPS := float64(p.FPS)
	fTotal := p.Duration * fFPS
	fActive := fTotal - p.FadeDuration*fFPS
	if fActive <= 0 {
		fActive = fTotal
	}

	zSpeed := p.ZoomSpeed
	if zSpeed <= 0 {
		zSpeed = 0.001
	}

	// Rise for the first third, hold, then return over the last third of
	// the active part.
	onPeak := fActive / 3
	peak := 1.0 + zSpeed*onPeak
	if peak > 1.5 {
		peak = 1.5
	}
	outroStart := fActive - onPeak

	zFormula := fmt.Sprintf("if(lte(on,%f), 1.0+(%f-1.0)*on/%f, if(lte(on,%f), %f, if(lte(on,%f), %f-(%f-1.0)*(on-%f)/%f, 1.0)))",
		onPeak, peak, onPeak, outroStart, peak, fActive, peak, peak, outroStart, onPeak)

	aspectFilter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		p.Width*2, p.Height*2, p.Width*2, p.Height*2,
	)

	zoomFilter := fmt.Sprintf(
		"zoompan=z='%s':d=%d:s=%dx%d:x='%s':y='%s':fps=%d",
		zFormula, frameCount(p), p.Width, p.Height, zoomX, zoomY, p.FPS,
	)

	return fmt.Sprintf("%s,%s,scale=%d:%d,setsar=1", aspectFilter, zoomFilter, p.Width, p.Height)
}
