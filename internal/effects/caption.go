package effects

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/width"

	"github.com/ivlev/quickcut/internal/config"
)

// CaptionEffect burns the slide caption into the frames produced by Base
// while the narration plays.
type CaptionEffect struct {
	Base Effect
}

func (e *CaptionEffect) GenerateFilter(p config.SegmentParams) string {
	base := e.Base.GenerateFilter(p)
	if p.CaptionFile == "" || p.CaptionEnd <= p.CaptionStart {
		return base
	}
	return base + "," + DrawText(p)
}

// DrawText builds the drawtext filter for the caption described by p.
func DrawText(p config.SegmentParams) string {
	size := p.CaptionFontSize
	if size <= 0 {
		size = 30
	}
	margin := p.Height / 18

	var y string
	switch strings.ToLower(p.CaptionPosition) {
	case "top":
		y = fmt.Sprintf("%d", margin)
	case "middle", "center":
		y = "(h-text_h)/2"
	default:
		y = fmt.Sprintf("h-text_h-%d", margin)
	}

	opts := []string{
		"textfile=" + quoteFilterValue(p.CaptionFile),
		// Caption text is literal; % and \ must not be read as markup.
		"expansion=none",
		fmt.Sprintf("fontsize=%d", size),
		"fontcolor=white",
		"line_spacing=6",
		"box=1",
		"boxcolor=black@0.5",
		"boxborderw=10",
		"x=(w-text_w)/2",
		"y=" + y,
		fmt.Sprintf("enable='between(t,%.3f,%.3f)'", p.CaptionStart, p.CaptionEnd),
	}
	if f := p.CaptionFont; f != "" {
		if strings.ContainsRune(f, filepath.Separator) || filepath.Ext(f) != "" {
			opts = append(opts, "fontfile="+quoteFilterValue(f))
		} else {
			opts = append(opts, "font="+quoteFilterValue(f))
		}
	}
	return "drawtext=" + strings.Join(opts, ":")
}

// quoteFilterValue single-quotes v for an ffmpeg filter option.
func quoteFilterValue(v string) string {
	return "'" + strings.ReplaceAll(v, "'", `'\''`) + "'"
}

// WrapCaption breaks text into lines no wider than 80% of frameWidth when
// drawn at fontSize. Wide (CJK) characters count double and words longer
// than a line are split between characters.
func WrapCaption(text string, fontSize, frameWidth int) string {
	if fontSize <= 0 || frameWidth <= 0 {
		return text
	}
	face := basicfont.Face7x13
	scale := float64(fontSize) / float64(face.Height)
	limit := fixed.Int26_6(float64(frameWidth) * 0.8 / scale * 64)

	measure := func(s string) fixed.Int26_6 {
		var w fixed.Int26_6
		for _, r := range s {
			adv, ok := face.GlyphAdvance(r)
			if !ok || adv == 0 {
				adv = fixed.I(face.Advance)
			}
			if k := width.LookupRune(r).Kind(); k == width.EastAsianWide || k == width.EastAsianFullwidth {
				adv *= 2
			}
			w += adv
		}
		return w
	}
	space := font.MeasureString(face, " ")

	var out []string
	for _, paragraph := range strings.Split(text, "\n") {
		var line string
		var lineW fixed.Int26_6
		flush := func() {
			if line != "" {
				out = append(out, line)
			}
			line, lineW = "", 0
		}
		for _, word := range strings.Fields(paragraph) {
			ww := measure(word)
			switch {
			case line == "" && ww <= limit:
				line, lineW = word, ww
			case line != "" && lineW+space+ww <= limit:
				line += " " + word
				lineW += space + ww
			case ww <= limit:
				flush()
				line, lineW = word, ww
			default:
				flush()
				for word != "" {
					r, n := utf8.DecodeRuneInString(word)
					rw := measure(string(r))
					if line != "" && lineW+rw > limit {
						flush()
					}
					line += word[:n]
					lineW += rw
					word = word[n:]
				}
			}
		}
		flush()
	}
	return strings.Join(out, "\n")
}
