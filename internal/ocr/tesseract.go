package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/smartocr/ocr-docx-service/internal/models"
)

// AutoLanguages is the engine profile the "auto" selector expands to.
const AutoLanguages = "eng+rus+uzb+uzb_cyrl"

// ErrEngineNotFound indicates the tesseract binary could not be located.
var ErrEngineNotFound = errors.New("tesseract not found: install it and make sure it is on PATH")

// candidatePaths are probed when tesseract is not on PATH.
var candidatePaths = []string{
	"/usr/bin/tesseract",
	"/usr/local/bin/tesseract",
	"/opt/homebrew/bin/tesseract",
	`C:\Program Files\Tesseract-OCR\tesseract.exe`,
	`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
}

// Engine drives the tesseract binary. The binary path is resolved once at
// construction time and never mutated afterwards, so a single Engine is safe
// for concurrent use.
type Engine struct {
	binary       string
	preprocessor *Preprocessor
	autoRotate   bool
}

// NewEngine resolves the tesseract binary and builds the engine.
func NewEngine(cfg models.OCRConfig) (*Engine, error) {
	binary, err := ResolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, err
	}
	return &Engine{
		binary:       binary,
		preprocessor: NewPreprocessor(cfg.FastMode, cfg.DebugDir),
		autoRotate:   cfg.AutoRotate,
	}, nil
}

// ResolveBinary locates the tesseract executable. An explicit path wins,
// then PATH lookup, then the known install locations.
func ResolveBinary(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("configured tesseract path %q: %w", explicit, err)
		}
		return explicit, nil
	}
	if found, err := exec.LookPath("tesseract"); err == nil {
		return found, nil
	}
	for _, c := range candidatePaths {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", ErrEngineNotFound
}

// Binary returns the resolved executable path.
func (e *Engine) Binary() string {
	return e.binary
}

// Version reports the tesseract version line, for health checks.
func (e *Engine) Version(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, e.binary, "--version").CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("tesseract --version: %w", err)
	}
	lines := strings.SplitN(string(out), "\n", 2)
	return strings.TrimSpace(lines[0]), nil
}

// expandLanguage maps the "auto" selector to the fixed multi-language
// profile. Any other value is passed through to the engine unchanged.
func expandLanguage(lang string) string {
	if lang == "" || strings.EqualFold(lang, "auto") {
		return AutoLanguages
	}
	return lang
}

// Recognize runs OCR with per-word geometry and returns the merged lines,
// sorted top-to-bottom.
func (e *Engine) Recognize(ctx context.Context, imagePath, lang string) (Page, error) {
	prepared, cleanup, err := e.prepare(ctx, imagePath)
	if err != nil {
		return Page{}, err
	}
	defer cleanup()

	out, err := e.run(ctx, prepared, expandLanguage(lang), "tsv")
	if err != nil {
		return Page{}, err
	}
	return ParseTSV(out)
}

// RecognizeText runs plain-text OCR and normalizes the output.
func (e *Engine) RecognizeText(ctx context.Context, imagePath, lang string) (string, error) {
	prepared, cleanup, err := e.prepare(ctx, imagePath)
	if err != nil {
		return "", err
	}
	defer cleanup()

	out, err := e.run(ctx, prepared, expandLanguage(lang), "txt")
	if err != nil {
		return "", err
	}
	return NormalizeText(string(out)), nil
}

// prepare preprocesses the input image and writes it to a scratch PNG the
// engine reads from. The returned cleanup removes the scratch file.
func (e *Engine) prepare(ctx context.Context, imagePath string) (string, func(), error) {
	img, err := e.preprocessor.PreprocessFile(imagePath)
	if err != nil {
		return "", nil, fmt.Errorf("preprocess %s: %w", filepath.Base(imagePath), err)
	}

	if e.autoRotate {
		// The orientation probe needs the image on disk. Rotate only when
		// the probe succeeds, otherwise leave the image alone.
		if tmp, terr := writeTempPNG(img); terr == nil {
			if deg, rerr := e.DetectRotation(ctx, tmp); rerr == nil && deg != 0 {
				img = Rotate(img, deg)
			}
			os.Remove(tmp)
		}
	}

	path, err := writeTempPNG(img)
	if err != nil {
		return "", nil, fmt.Errorf("write preprocessed image: %w", err)
	}
	e.preprocessor.SaveDebugImage(img, imagePath)
	return path, func() { os.Remove(path) }, nil
}

func writeTempPNG(img image.Image) (string, error) {
	f, err := os.CreateTemp("", "ocr_pre_*.png")
	if err != nil {
		return "", err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

var rotatePattern = regexp.MustCompile(`Rotate:\s*(\d+)`)

// DetectRotation asks tesseract's OSD mode for the page orientation.
// Returns 0, 90, 180 or 270 degrees.
func (e *Engine) DetectRotation(ctx context.Context, imagePath string) (int, error) {
	cmd := exec.CommandContext(ctx, e.binary, imagePath, "stdout", "--psm", "0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("orientation probe: %w", err)
	}
	m := rotatePattern.FindSubmatch(out)
	if m == nil {
		return 0, nil
	}
	deg, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, nil
	}
	switch deg {
	case 90, 180, 270:
		return deg, nil
	}
	return 0, nil
}

// run invokes tesseract with the standard document settings. format is
// "tsv" for geometry output or "txt" for plain text.
func (e *Engine) run(ctx context.Context, imagePath, lang, format string) ([]byte, error) {
	args := []string{imagePath, "stdout", "-l", lang, "--oem", "3", "--psm", "3", "--dpi", "300"}
	if format == "tsv" {
		args = append(args, "tsv")
	}

	cmd := exec.CommandContext(ctx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("tesseract failed: %s", msg)
	}
	return stdout.Bytes(), nil
}

var (
	spacesPattern = regexp.MustCompile(`[ \t]+`)
	blanksPattern = regexp.MustCompile(`\n{3,}`)
)

// NormalizeText cleans raw OCR output: unifies newlines, collapses runs of
// spaces and squeezes excessive blank lines.
func NormalizeText(text string) string {
	t := strings.ReplaceAll(text, "\r\n", "\n")
	t = strings.ReplaceAll(t, "\r", "\n")
	t = spacesPattern.ReplaceAllString(t, " ")
	t = blanksPattern.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}
