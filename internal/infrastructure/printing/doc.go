// Package printing turns quotes, orders and reports into PDF documents.
//
// Documents are rendered in two stages. TemplateEngine executes an
// html/template from the TemplateStore with locale-aware formatting
// helpers, and a PDFRenderer (ChromedpRenderer in production) prints the
// resulting HTML through headless Chromium. RenderCache keeps recent
// output keyed by document identity and revision.
//
// Example usage:
//
//	engine, err := printing.NewTemplateEngine("pt-BR", "BRL")
//	store, err := printing.NewTemplateStore("")
//	tmpl, err := store.GetDefault(printing.DocTypeQuote)
//	out, err := engine.Render(ctx, &printing.RenderTemplateRequest{Template: tmpl, Data: doc})
//	result, err := renderer.Render(ctx, &printing.RenderRequest{
//	    HTML:      out.HTML,
//	    PaperSize: tmpl.PaperSize,
//	})
package printing
