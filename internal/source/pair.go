package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ivlev/quickcut/internal/natsort"
)

// ErrNoSlidesFound is returned when a directory yields no text/image pair.
var ErrNoSlidesFound = errors.New("no slides found")

// imageExtensions is the probe order for the image paired with a text file.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// Slide is one matched text/image pair. Index is its position in the
// timeline, assigned after unmatched text files were dropped.
type Slide struct {
	Index     int
	BaseName  string
	TextPath  string
	ImagePath string
	Caption   string
}

// Pairing is the result of scanning an input directory.
type Pairing struct {
	Slides []Slide
	// Skipped lists text files that had no image next to them.
	Skipped []string
}

// PairSlides scans dir for {name}.txt files and pairs each with
// {name}.jpg, {name}.jpeg or {name}.png, first match wins.
func PairSlides(dir string) (*Pairing, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSlidesFound, err)
	}

	files := make(map[string]bool, len(entries))
	var bases []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		files[name] = true
		if filepath.Ext(name) == ".txt" {
			bases = append(bases, strings.TrimSuffix(name, ".txt"))
		}
	}

	type candidate struct {
		base  string
		image string
		key   natsort.Key
	}

	var matched []candidate
	result := &Pairing{}
	for _, base := range bases {
		image := ""
		for _, ext := range imageExtensions {
			if files[base+ext] {
				image = base + ext
				break
			}
		}
		if image == "" {
			result.Skipped = append(result.Skipped, filepath.Join(dir, base+".txt"))
			continue
		}
		matched = append(matched, candidate{base: base, image: image, key: natsort.NewKey(base)})
	}

	if len(matched) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSlidesFound, dir)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return natsort.Compare(matched[i].key, matched[j].key) < 0
	})
	natsort.Sort(result.Skipped)

	for i, c := range matched {
		textPath := filepath.Join(dir, c.base+".txt")
		data, err := os.ReadFile(textPath)
		if err != nil {
			return nil, fmt.Errorf("read caption %s: %w", textPath, err)
		}
		result.Slides = append(result.Slides, Slide{
			Index:     i,
			BaseName:  c.base,
			TextPath:  textPath,
			ImagePath: filepath.Join(dir, c.image),
			Caption:   strings.TrimSpace(string(data)),
		})
	}

	return result, nil
}
