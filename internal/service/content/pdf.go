package content

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"mediachat/internal/models"
)

// PageExtractor returns the text of every page of one document, in page order.
type PageExtractor interface {
	Pages(r io.ReaderAt, size int64) ([]string, error)
}

// PDFReader extracts page text with ledongthuc/pdf.
type PDFReader struct{}

func (PDFReader) Pages(r io.ReaderAt, size int64) (pages []string, err error) {
	// the parser panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parse pdf: %v", rec)
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	n := rdr.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		pg := rdr.Page(i)
		if pg.V.IsNull() {
			continue
		}
		txt, err := pg.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, txt)
	}
	return pages, nil
}

// ExtractText concatenates the page text of every upload in upload order,
// inserting nothing between pages or documents. Any parse failure aborts.
func ExtractText(ctx context.Context, ex PageExtractor, uploads []models.Upload) (string, error) {
	var b strings.Builder
	for _, up := range uploads {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		data, err := readUpload(up)
		if err != nil {
			return "", err
		}
		pages, err := ex.Pages(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return "", fmt.Errorf("%s: %w", up.Name, err)
		}
		for _, p := range pages {
			b.WriteString(p)
		}
	}
	return b.String(), nil
}

func readUpload(up models.Upload) ([]byte, error) {
	if up.Open == nil {
		return nil, fmt.Errorf("%s: no data", up.Name)
	}
	rc, err := up.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", up.Name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", up.Name, err)
	}
	return data, nil
}
