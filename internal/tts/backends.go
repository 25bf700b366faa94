package tts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Edge drives the edge-tts command line client.
type Edge struct {
	Backend
}

func (e *Edge) Name() string { return "edge" }

func (e *Edge) Synthesize(ctx context.Context, req Request, outPath string) (Result, error) {
	voice := req.Voice
	if voice == "" {
		voice = DefaultVoice(req.Language)
	}
	args := []string{
		"--voice", voice,
		"--rate=" + EdgeRate(req.Speed),
		"--text", req.Text,
		"--write-media", outPath,
	}
	if _, err := e.Run(ctx, "edge-tts", args...); err != nil {
		return Result{}, err
	}
	return e.result(ctx, outPath)
}

// EdgeRate converts a speed factor to the signed percentage edge-tts expects.
func EdgeRate(speed float64) string {
	switch {
	case speed > 1.0:
		return fmt.Sprintf("+%d%%", int((speed-1)*100+0.5))
	case speed > 0 && speed < 1.0:
		return fmt.Sprintf("-%d%%", int((1-speed)*100+0.5))
	}
	return "+0%"
}

// Google drives gtts-cli. gTTS has no rate control, so speed is applied
// afterwards with ffmpeg's atempo.
type Google struct {
	Backend
}

func (g *Google) Name() string { return "gtts" }

func (g *Google) Synthesize(ctx context.Context, req Request, outPath string) (Result, error) {
	textFile := outPath + ".txt"
	if err := os.WriteFile(textFile, []byte(req.Text), 0644); err != nil {
		return Result{}, err
	}
	defer os.Remove(textFile)

	lang := req.Language
	if lang == "" {
		lang = "en"
	}

	target := outPath
	retime := req.Speed > 0 && req.Speed != 1.0
	if retime {
		target = outPath + ".raw.mp3"
		defer os.Remove(target)
	}

	if _, err := g.Run(ctx, "gtts-cli", "--file", textFile, "--lang", lang, "--output", target); err != nil {
		return Result{}, err
	}

	if retime {
		_, err := g.Run(ctx, "ffmpeg", "-y", "-v", "error", "-i", target, "-filter:a", AtempoChain(req.Speed), outPath)
		if err != nil {
			return Result{}, fmt.Errorf("retime narration: %w", err)
		}
	}
	return g.result(ctx, outPath)
}

// AtempoChain splits speed into atempo stages within the 0.5-2.0 range each
// stage accepts.
func AtempoChain(speed float64) string {
	var stages []string
	for speed > 2.0 {
		stages = append(stages, "atempo=2.0")
		speed /= 2.0
	}
	for speed < 0.5 {
		stages = append(stages, "atempo=0.5")
		speed /= 0.5
	}
	stages = append(stages, "atempo="+strconv.FormatFloat(speed, 'f', -1, 64))
	return strings.Join(stages, ",")
}

// Espeak is the offline backend. It always writes WAV.
type Espeak struct {
	Backend
}

func (e *Espeak) Name() string { return "espeak" }

func (e *Espeak) Synthesize(ctx context.Context, req Request, outPath string) (Result, error) {
	wavPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".wav"
	textFile := wavPath + ".txt"
	if err := os.WriteFile(textFile, []byte(req.Text), 0644); err != nil {
		return Result{}, err
	}
	defer os.Remove(textFile)

	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}
	voice := req.Voice
	if voice == "" {
		voice = req.Language
	}
	if voice == "" {
		voice = "en"
	}

	args := []string{"-v", voice, "-s", strconv.Itoa(int(150 * speed)), "-w", wavPath, "-f", textFile}
	if _, err := e.Run(ctx, "espeak-ng", args...); err != nil {
		return Result{}, err
	}
	return e.result(ctx, wavPath)
}
