package extractor

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// NotFound is returned in place of text when the PDF path does not exist.
const NotFound = "PDF file not found."

// Extractor turns a PDF on disk into plain text.
type Extractor struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Extractor {
	return &Extractor{log: log}
}

// pageSource is the subset of *pdf.Reader used for extraction.
type pageSource interface {
	NumPage() int
	Page(num int) pdf.Page
}

// Extract returns every page's text followed by a newline, in page order.
// A missing file yields NotFound. Unreadable files and pages contribute
// nothing; Extract never fails.
func (e *Extractor) Extract(path string) string {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			e.log.Warn("pdf not found", "path", path)
			return NotFound
		}
		e.log.Error("pdf stat failed", "path", path, "err", err)
		return ""
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		e.log.Error("pdf open failed", "path", path, "err", err)
		return ""
	}
	defer f.Close()

	text := extractPages(reader, e.log)
	e.log.Info("pdf extracted", "path", path, "pages", reader.NumPage(), "chars", len(text))
	return text
}

func extractPages(src pageSource, log *slog.Logger) string {
	var textBuilder strings.Builder
	numPages := src.NumPage()

	for pageNum := 1; pageNum <= numPages; pageNum++ {
		text, ok := pageText(src.Page(pageNum))
		if !ok {
			log.Debug("page skipped", "page", pageNum)
			continue
		}
		textBuilder.WriteString(text)
		textBuilder.WriteString("\n")
	}
	return textBuilder.String()
}

// pageText returns false for pages without extractable text.
func pageText(page pdf.Page) (text string, ok bool) {
	defer func() {
		// ledongthuc/pdf panics on some malformed content streams.
		if recover() != nil {
			text, ok = "", false
		}
	}()
	if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
		return "", false
	}
	text, err := page.GetPlainText(nil)
	if err != nil || text == "" {
		return "", false
	}
	return text, true
}
