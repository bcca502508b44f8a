// Command generate-test-data writes synthetic soil photographs for manual
// testing of the classify and serve commands.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/soilsense/internal/synth"
)

var soilColors = map[string]color.RGBA{
	"alluvial": synth.AlluvialColor,
	"black":    synth.BlackColor,
	"desert":   synth.DesertColor,
	"red":      synth.RedColor,
}


func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata/images", "output directory")
		formats = flag.String("formats", strings.Join(synth.Formats, ","), "comma separated encodings")
		size    = flag.Int("size", 256, "square image size in pixels")
		help    = flag.Bool("h", false, "Show help")
	)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate synthetic soil photographs for soilsense testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	dir := *outDir
	if !filepath.IsAbs(dir) {
		if root, err := moduleRoot(); err == nil {
			dir = filepath.Join(root, dir)
		}
	}

	written, err := generate(dir, strings.Split(*formats, ","), *size)
	if err != nil {
		slog.Error("Failed to generate test images", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir, "files", len(written))
}

// generate writes one photo per soil colour and format into dir and returns
// the written paths. File names are <soil>.<format>.
func generate(dir string, formats []string, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("size must be positive, got %d", size)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	var written []string
	for _, name := range []string{"alluvial", "black", "desert", "red"} {
		img := synth.GenerateSoilImage(synth.SoilImageConfig{
			Width: size, Height: size, Base: soilColors[name], Grain: 12, Seed: 1,
		})
		for _, f := range formats {
			f = strings.ToLower(strings.TrimSpace(f))
			if f == "" {
				continue
			}
			data, err := synth.Encode(f, img)
			if err != nil {
				return written, err
			}
			path := filepath.Join(dir, name+"."+f)
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return written, fmt.Errorf("failed to write %s: %w", path, err)
			}
			written = append(written, path)
		}
	}
	return written, nil
}

// moduleRoot walks up from the working directory to the nearest go.mod.
func moduleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("no go.mod above the working directory")
		}
		dir = parent
	}
}
