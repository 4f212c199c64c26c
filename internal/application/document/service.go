package document

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/erp/bizdesk/internal/domain/client"
	"github.com/erp/bizdesk/internal/domain/order"
	"github.com/erp/bizdesk/internal/domain/quote"
	"github.com/erp/bizdesk/internal/infrastructure/cache"
	"github.com/erp/bizdesk/internal/infrastructure/printing"
	"github.com/erp/bizdesk/internal/infrastructure/storage"
	"github.com/erp/bizdesk/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContentTypePDF is the media type of every rendered document
const ContentTypePDF = "application/pdf"

const footerHTML = `<div style="font-size:8px;width:100%;text-align:center;color:#666">` +
	`<span class="pageNumber"></span> / <span class="totalPages"></span></div>`

// TemplateSource resolves the template printed for a document type
type TemplateSource interface {
	GetDefault(docType printing.DocType) (*printing.StaticTemplate, error)
}

// LogoSource returns the company logo, or nil when none is configured
type LogoSource interface {
	Logo(ctx context.Context) (*storage.Object, error)
}

// Document is a rendered PDF. URL is set when the file was also written to
// object storage.
type Document struct {
	FileName    string     `json:"file_name"`
	ContentType string     `json:"content_type"`
	Data        []byte     `json:"-"`
	PageCount   int        `json:"page_count"`
	CacheHit    bool       `json:"cache_hit"`
	StorageKey  string     `json:"storage_key,omitempty"`
	URL         string     `json:"url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// RenderOptions controls optional side effects of a render
type RenderOptions struct {
	// Store writes the PDF to object storage and returns a download URL
	Store bool
}

// DocumentService prints quotes, orders and reports to PDF
type DocumentService struct {
	quoteRepo quote.QuoteRepository
	orderRepo order.OrderRepository
	cache     *cache.DataManager
	templates TemplateSource
	engine    *printing.TemplateEngine
	renderer  printing.PDFRenderer
	renders   *printing.RenderCache
	storage   storage.ObjectStorage
	logos     LogoSource
	metrics   *telemetry.DocumentMetrics
	urlExpiry time.Duration
	logger    *zap.Logger
	now       func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	quoteRepo quote.QuoteRepository,
	orderRepo order.OrderRepository,
	dm *cache.DataManager,
	templates TemplateSource,
	engine *printing.TemplateEngine,
	renderer printing.PDFRenderer,
	renders *printing.RenderCache,
	logger *zap.Logger,
) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentService{
		quoteRepo: quoteRepo,
		orderRepo: orderRepo,
		cache:     dm,
		templates: templates,
		engine:    engine,
		renderer:  renderer,
		renders:   renders,
		urlExpiry: 15 * time.Minute,
		logger:    logger.Named("document-service"),
		now:       time.Now,
	}
}

// SetStorage enables storing rendered documents. expiry bounds the returned
// download URLs; zero keeps the default.
func (s *DocumentService) SetStorage(objects storage.ObjectStorage, expiry time.Duration) {
	s.storage = objects
	if expiry > 0 {
		s.urlExpiry = expiry
	}
}

// SetLogoSource sets where the company logo is read from
func (s *DocumentService) SetLogoSource(logos LogoSource) {
	s.logos = logos
}

// SetMetrics sets the render instruments
func (s *DocumentService) SetMetrics(metrics *telemetry.DocumentMetrics) {
	s.metrics = metrics
}

// RenderQuotePDF prints a quote
func (s *DocumentService) RenderQuotePDF(ctx context.Context, id uuid.UUID, opts RenderOptions) (*Document, error) {
	q, ok := s.cache.Quotes.Find(id.String())
	if !ok {
		var err error
		if q, err = s.quoteRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	info, revision, err := s.companyInfo(ctx, q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	data := printing.NewQuoteDocument(info, s.findClient(q.ClientID), q, s.now())
	return s.render(ctx, printing.DocTypeQuote, q.ID, revision, q.QuoteNumber, data, opts)
}

// RenderOrderPDF prints an order
func (s *DocumentService) RenderOrderPDF(ctx context.Context, id uuid.UUID, opts RenderOptions) (*Document, error) {
	o, ok := s.cache.Orders.Find(id.String())
	if !ok {
		var err error
		if o, err = s.orderRepo.FindByID(ctx, id); err != nil {
			return nil, err
		}
	}

	var quoteNumber string
	if o.QuoteID != nil {
		if q, ok := s.cache.Quotes.Find(o.QuoteID.String()); ok {
			quoteNumber = q.QuoteNumber
		}
	}

	info, revision, err := s.companyInfo(ctx, o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	data := printing.NewOrderDocument(info, s.findClient(o.ClientID), o, quoteNumber, s.now())
	return s.render(ctx, printing.DocTypeOrder, o.ID, revision, o.OrderNumber, data, opts)
}

// RenderReportPDF prints a report table. Reports are not cached since their
// content depends on the filter.
func (s *DocumentService) RenderReportPDF(ctx context.Context, title, subtitle string, columns []string, rows [][]string, totals []string) (*Document, error) {
	info, _, err := s.companyInfo(ctx, time.Time{})
	if err != nil {
		return nil, err
	}
	data := printing.ReportDocument{
		Company:     info,
		Title:       title,
		Subtitle:    subtitle,
		Columns:     columns,
		Rows:        rows,
		Totals:      totals,
		GeneratedAt: s.now(),
	}

	start := time.Now()
	result, err := s.print(ctx, printing.DocTypeReport, title, data)
	s.metrics.RecordRender(ctx, string(printing.DocTypeReport), time.Since(start), false, err)
	if err != nil {
		return nil, err
	}
	return &Document{
		FileName:    fileName("report", title),
		ContentType: ContentTypePDF,
		Data:        result.PDFData,
		PageCount:   result.PageCount,
	}, nil
}

func (s *DocumentService) render(ctx context.Context, docType printing.DocType, id uuid.UUID, revision time.Time, number string, data any, opts RenderOptions) (doc *Document, err error) {
	ctx, span := telemetry.StartSpan(ctx, "document.render",
		telemetry.SpanAttrDocType, string(docType),
		"document_number", number,
	)
	defer func() { telemetry.EndSpan(span, err) }()

	start := time.Now()
	key := printing.RenderKey(docType, id, revision)
	result, hit, err := s.renders.GetOrRender(ctx, key, func(ctx context.Context) (*printing.RenderResult, error) {
		return s.print(ctx, docType, number, data)
	})
	s.metrics.RecordRender(ctx, string(docType), time.Since(start), hit, err)
	telemetry.SetAttributes(span, telemetry.SpanAttrCacheHit, hit)
	if err != nil {
		s.logger.Error("Failed to render document",
			zap.String("doc_type", string(docType)),
			zap.String("id", id.String()),
			zap.Error(err))
		return nil, err
	}

	doc = &Document{
		FileName:    fileName(string(docType), number),
		ContentType: ContentTypePDF,
		Data:        result.PDFData,
		PageCount:   result.PageCount,
		CacheHit:    hit,
	}
	if opts.Store {
		if err := s.store(ctx, doc, fmt.Sprintf("documents/%s/%s-%d.pdf", docType, id, revision.UnixNano())); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (s *DocumentService) print(ctx context.Context, docType printing.DocType, title string, data any) (*printing.RenderResult, error) {
	tmpl, err := s.templates.GetDefault(docType)
	if err != nil {
		return nil, err
	}
	html, err := s.engine.Render(ctx, &printing.RenderTemplateRequest{Template: tmpl, Data: data})
	if err != nil {
		return nil, err
	}

	var result *printing.RenderResult
	labels := map[string]string{telemetry.ProfilingLabelDocType: string(docType)}
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		result, err = s.renderer.Render(ctx, &printing.RenderRequest{
			HTML:        html.HTML,
			PaperSize:   tmpl.PaperSize,
			Orientation: tmpl.Orientation,
			Margins:     tmpl.Margins,
			Title:       title,
			FooterHTML:  footerHTML,
		})
	})
	return result, err
}

// store uploads the PDF unless the same revision already exists
func (s *DocumentService) store(ctx context.Context, doc *Document, key string) error {
	if s.storage == nil {
		return ErrStorageDisabled
	}
	exists, err := s.storage.Exists(ctx, key)
	if err != nil {
		return err
	}
	if !exists {
		if err := s.storage.Put(ctx, key, doc.Data, ContentTypePDF); err != nil {
			return err
		}
	}
	url, expires, err := s.storage.DownloadURL(ctx, key, s.urlExpiry)
	if err != nil {
		return err
	}
	doc.StorageKey = key
	doc.URL = url
	doc.ExpiresAt = &expires
	return nil
}

// companyInfo returns the issuer block and the later of the document and
// settings revisions, so a profile edit re-renders cached documents
func (s *DocumentService) companyInfo(ctx context.Context, updatedAt time.Time) (printing.CompanyInfo, time.Time, error) {
	settings, err := s.cache.CompanySettings.Current(ctx)
	if err != nil {
		return printing.CompanyInfo{}, time.Time{}, err
	}
	info := printing.NewCompanyInfo(settings)
	revision := updatedAt
	if settings != nil && settings.UpdatedAt.After(revision) {
		revision = settings.UpdatedAt
	}

	if s.logos != nil && settings != nil && settings.HasLogo() {
		logo, err := s.logos.Logo(ctx)
		if err != nil {
			s.logger.Warn("Printing without logo", zap.Error(err))
		} else if logo != nil {
			info = info.WithLogo(logo.ContentType, logo.Data)
		}
	}
	return info, revision, nil
}

func (s *DocumentService) findClient(id uuid.UUID) *client.Client {
	c, ok := s.cache.Clients.Find(id.String())
	if !ok {
		return nil
	}
	return c
}

func fileName(prefix, name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '/':
			return '-'
		}
		return -1
	}, strings.TrimSpace(name))
	if name == "" {
		return prefix + ".pdf"
	}
	return prefix + "-" + strings.ToLower(name) + ".pdf"
}
