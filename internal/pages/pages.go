// Package pages rasterizes the pages of a scanned source document into one
// image per page. It knows nothing about OCR beyond the resolution floor
// the selected engine asks for.
//
// Rendering uses pdftoppm from poppler-utils; page counting and input
// validation use pdfcpu.
package pages

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"scanreview/internal/logger"
)

// Page is one rasterized page of the source document.
type Page struct {
	Number    int    // 1-indexed, defines processing and review order
	ImagePath string // rendered PNG for this page
}

// CheckTooling verifies pdftoppm is installed. Run by setup validation.
func CheckTooling() error {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return fmt.Errorf("pdftoppm (poppler-utils) is required for page rasterization but was not found in PATH")
	}
	return nil
}

// Count validates the source PDF and returns its page count. The count is
// known before any page is processed; a stable page ordering is the only
// other property the pipeline requires of its input.
func Count(pdfPath string) (int, error) {
	info, err := os.Stat(pdfPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("source PDF not found: %s", pdfPath)
		}
		return 0, fmt.Errorf("error accessing source PDF: %w", err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("source path is not a regular file: %s", pdfPath)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("source PDF is empty: %s", pdfPath)
	}

	f, err := os.Open(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open source PDF: %w", err)
	}
	defer f.Close()

	count, err := api.PageCount(f, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count from %s: %w", filepath.Base(pdfPath), err)
	}
	if count == 0 {
		return 0, fmt.Errorf("source PDF has no pages: %s", pdfPath)
	}
	return count, nil
}

// Extract renders every page of the PDF to outDir as page_NNNN.png at the
// given resolution and returns the pages in ascending order. Pages render
// concurrently; the first failure wins.
func Extract(ctx context.Context, pdfPath, outDir string, dpi int) ([]Page, error) {
	log := logger.WithDocument("pages", filepath.Base(pdfPath))

	pageCount, err := Count(pdfPath)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	log.Info().Int("pages", pageCount).Int("dpi", dpi).Msg("rasterizing source document")

	maxWorkers := runtime.NumCPU()

	type rendered struct {
		pageNum int
		err     error
	}

	results := make(chan rendered, pageCount)
	sem := make(chan struct{}, maxWorkers)

	for page := 1; page <= pageCount; page++ {
		sem <- struct{}{} // acquire
		go func(pageNum int) {
			defer func() { <-sem }() // release
			err := renderPage(ctx, pdfPath, outDir, pageNum, dpi)
			results <- rendered{pageNum: pageNum, err: err}
		}(page)
	}

	for i := 0; i < pageCount; i++ {
		r := <-results
		if r.err != nil {
			return nil, fmt.Errorf("failed to render page %d: %w", r.pageNum, r.err)
		}
	}

	out := make([]Page, 0, pageCount)
	for page := 1; page <= pageCount; page++ {
		out = append(out, Page{Number: page, ImagePath: ImagePath(outDir, page)})
	}
	return out, nil
}

// ImagePath returns the canonical rendered-image path for a page number.
func ImagePath(outDir string, pageNumber int) string {
	return filepath.Join(outDir, fmt.Sprintf("page_%04d.png", pageNumber))
}

// renderPage renders a single page using pdftoppm.
func renderPage(ctx context.Context, pdfPath, outDir string, pageNum, dpi int) error {
	tmpDir, err := os.MkdirTemp("", "scanreview-page-*")
	if err != nil {
		return fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")

	// -f/-l restrict to the one page; -singlefile drops the page suffix.
	pageStr := strconv.Itoa(pageNum)
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(dpi),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("pdftoppm failed: %w (output: %s)", err, strings.TrimSpace(string(output)))
	}

	srcPath := outputPrefix + ".png"
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("pdftoppm did not produce expected output: %w", err)
	}

	if err := os.WriteFile(ImagePath(outDir, pageNum), data, 0o644); err != nil {
		return fmt.Errorf("failed to write page image: %w", err)
	}
	return nil
}
