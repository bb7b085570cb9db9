// Package report renders stored scans as HTML and PDF documents.
package report

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	Landscape       bool
	PrintBackground bool
	PaperWidth      float64 // inches
	PaperHeight     float64 // inches
	Margin          float64 // inches, all sides
	Timeout         time.Duration
}

// DefaultPDFOptions returns landscape Letter output, which fits the link table
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		Landscape:       true,
		PrintBackground: true,
		PaperWidth:      8.5,
		PaperHeight:     11.0,
		Margin:          0.4,
		Timeout:         30 * time.Second,
	}
}

// GeneratePDF renders the scan report through headless Chrome into outputPath
func (g *Generator) GeneratePDF(ctx context.Context, scanID int64, outputPath string, options PDFOptions) error {
	html, err := g.GenerateHTML(scanID)
	if err != nil {
		return fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdf, err := htmlToPDF(ctx, html, options)
	if err != nil {
		return err
	}

	if err := os.WriteFile(outputPath, pdf, 0o600); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

// htmlToPDF loads html into a blank page and prints it
func htmlToPDF(parent context.Context, html string, options PDFOptions) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(parent)
	defer cancel()

	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	var pdfData []byte
	if err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, html).Do(ctx)
		}),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfData, _, err = page.PrintToPDF().
				WithLandscape(options.Landscape).
				WithPrintBackground(options.PrintBackground).
				WithPaperWidth(options.PaperWidth).
				WithPaperHeight(options.PaperHeight).
				WithMarginTop(options.Margin).
				WithMarginBottom(options.Margin).
				WithMarginLeft(options.Margin).
				WithMarginRight(options.Margin).
				Do(ctx)
			return err
		}),
	); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return pdfData, nil
}
