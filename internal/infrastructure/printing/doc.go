// Package printing turns a live web page into a fixed-size PDF and hands the
// result to the user, either as a preview or straight to a printer.
//
// This package contains:
// - PDFRenderer and the chromedp-backed ChromedpRenderer
// - the in-page transform that isolates the print target
// - FileStorage for preview, transient and desktop copies of rendered PDFs
// - Dispatcher with its per-platform chain of PrintStrategy tiers
//
// Example usage:
//
//	renderer, err := NewChromedpRenderer(&ChromedpConfig{Logger: logger})
//	if err != nil {
//	    return err
//	}
//	defer renderer.Close()
//
//	result, err := renderer.Render(ctx, &RenderRequest{
//	    URL:       "http://localhost:3000/labels/42",
//	    Selector:  "#print-area",
//	    PaperSize: paper,
//	})
//	if err != nil {
//	    return err
//	}
//
//	dispatched, err := dispatcher.Preview(ctx, result.PDFData)
package printing
