package main

import (
	"context"
	"fmt"
	"os"

	companyapp "github.com/erp/bizdesk/internal/application/company"
	"github.com/erp/bizdesk/internal/application/document"
	"github.com/erp/bizdesk/internal/infrastructure/printing"
	"github.com/erp/bizdesk/internal/infrastructure/storage"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var renderOutput string

// renderCmd prints documents to PDF without a running server
var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render documents to PDF",
}

var renderQuoteCmd = &cobra.Command{
	Use:   "quote <id>",
	Short: "Render a quote to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], (*document.DocumentService).RenderQuotePDF)
	},
}

var renderOrderCmd = &cobra.Command{
	Use:   "order <id>",
	Short: "Render an order to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRender(cmd, args[0], (*document.DocumentService).RenderOrderPDF)
	},
}

func init() {
	renderCmd.PersistentFlags().StringVarP(&renderOutput, "output", "o", "", "Output file (default: the document file name)")
	renderCmd.AddCommand(renderQuoteCmd)
	renderCmd.AddCommand(renderOrderCmd)
}

type renderFunc = func(*document.DocumentService, context.Context, uuid.UUID, document.RenderOptions) (*document.Document, error)

func runRender(cmd *cobra.Command, rawID string, render renderFunc) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", rawID, err)
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	objects, err := storage.New(ctx, &cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("open object storage: %w", err)
	}

	templates, err := printing.NewTemplateStore("")
	if err != nil {
		return err
	}
	engine, err := printing.NewTemplateEngine(cfg.Printing.Locale, cfg.Printing.Currency)
	if err != nil {
		return err
	}
	renderer := printing.NewChromedpRenderer(printing.ChromedpConfig{
		DefaultTimeout: cfg.Printing.RenderTimeout,
		RemoteURL:      cfg.Printing.RemoteURL,
		ExecPath:       cfg.Printing.ChromePath,
		NoSandbox:      os.Geteuid() == 0,
		MaxConcurrent:  1,
		Logger:         log,
	})
	defer func() { _ = renderer.Close() }()

	renders := printing.NewRenderCache(cfg.Printing.CacheTTL, 1)
	defer renders.Close()

	docs := document.NewDocumentService(s.repos.Quotes, s.repos.Orders, s.dm, templates, engine, renderer, renders, log)
	docs.SetLogoSource(companyapp.NewCompanyService(s.repos.Settings, s.dm, objects, log))

	doc, err := render(docs, ctx, id, document.RenderOptions{})
	if err != nil {
		return err
	}

	path := renderOutput
	if path == "" {
		path = doc.FileName
	}
	if path == "-" {
		_, err = cmd.OutOrStdout().Write(doc.Data)
		return err
	}
	if err := os.WriteFile(path, doc.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s (%d pages, %d bytes)\n", path, doc.PageCount, len(doc.Data))
	return nil
}
