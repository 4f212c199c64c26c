package printing

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

//go:embed templates/*.html
var templateFS embed.FS

// DocType names the kind of document a template prints
type DocType string

const (
	DocTypeQuote  DocType = "quote"
	DocTypeOrder  DocType = "order"
	DocTypeReport DocType = "report"
)

// IsValid reports whether the document type is known
func (d DocType) IsValid() bool {
	return d == DocTypeQuote || d == DocTypeOrder || d == DocTypeReport
}

// DefaultTemplate represents a built-in template configuration
type DefaultTemplate struct {
	DocType     DocType
	Name        string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	FilePath    string // Path within embed.FS
	IsDefault   bool   // Whether this is the default for its doc type
}

// GetDefaultTemplates returns all built-in template configurations
func GetDefaultTemplates() []DefaultTemplate {
	return []DefaultTemplate{
		{
			DocType:     DocTypeQuote,
			Name:        "Quote A4",
			PaperSize:   PaperSizeA4,
			Orientation: OrientationPortrait,
			Margins:     DefaultMargins(),
			FilePath:    "templates/quote_a4.html",
			IsDefault:   true,
		},
		{
			DocType:     DocTypeOrder,
			Name:        "Order A4",
			PaperSize:   PaperSizeA4,
			Orientation: OrientationPortrait,
			Margins:     DefaultMargins(),
			FilePath:    "templates/order_a4.html",
			IsDefault:   true,
		},
		{
			DocType:     DocTypeReport,
			Name:        "Report A4 landscape",
			PaperSize:   PaperSizeA4,
			Orientation: OrientationLandscape,
			Margins:     DefaultMargins(),
			FilePath:    "templates/report_a4.html",
			IsDefault:   true,
		},
	}
}

// LoadTemplateContent reads a built-in template
func LoadTemplateContent(filePath string) (string, error) {
	content, err := fs.ReadFile(templateFS, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read embedded template %s: %w", filePath, err)
	}
	return string(content), nil
}

// TemplateStore manages static print templates.
// Files in an external directory override the embedded ones by file name.
type TemplateStore struct {
	externalDir string
	templates   []StaticTemplate
	mu          sync.RWMutex
}

// StaticTemplate represents a print template with loaded content
type StaticTemplate struct {
	ID          string // Stable ID derived from doc type, paper size and orientation
	DocType     DocType
	Name        string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	Content     string
	IsDefault   bool
}

// NewTemplateStore creates a template store. An empty or missing
// externalDir means only embedded templates are used.
func NewTemplateStore(externalDir string) (*TemplateStore, error) {
	store := &TemplateStore{externalDir: externalDir}
	if err := store.loadTemplates(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *TemplateStore) loadTemplates() error {
	defaults := GetDefaultTemplates()
	templates := make([]StaticTemplate, 0, len(defaults))

	for _, dt := range defaults {
		content, err := s.loadTemplateContent(dt.FilePath)
		if err != nil {
			return fmt.Errorf("failed to load template %s: %w", dt.Name, err)
		}

		templates = append(templates, StaticTemplate{
			ID:          generateTemplateID(dt.DocType, dt.PaperSize, dt.Orientation),
			DocType:     dt.DocType,
			Name:        dt.Name,
			PaperSize:   dt.PaperSize,
			Orientation: dt.Orientation,
			Margins:     dt.Margins,
			Content:     content,
			IsDefault:   dt.IsDefault,
		})
	}

	s.mu.Lock()
	s.templates = templates
	s.mu.Unlock()
	return nil
}

func (s *TemplateStore) loadTemplateContent(embeddedPath string) (string, error) {
	if s.externalDir != "" {
		externalPath := filepath.Join(s.externalDir, path.Base(embeddedPath))
		if content, err := os.ReadFile(externalPath); err == nil {
			return string(content), nil
		}
	}
	return LoadTemplateContent(embeddedPath)
}

// GetByID returns a template by its ID
func (s *TemplateStore) GetByID(id string) *StaticTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.templates {
		if s.templates[i].ID == id {
			t := s.templates[i]
			return &t
		}
	}
	return nil
}

// GetDefault returns the default template for a document type
func (s *TemplateStore) GetDefault(docType DocType) (*StaticTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.templates {
		if s.templates[i].DocType == docType && s.templates[i].IsDefault {
			t := s.templates[i]
			return &t, nil
		}
	}
	return nil, NewRenderError(ErrCodeTemplateNotFound, "no template for document type "+string(docType), nil)
}

// GetAll returns all templates
func (s *TemplateStore) GetAll() []StaticTemplate {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]StaticTemplate, len(s.templates))
	copy(result, s.templates)
	return result
}

// Reload re-reads all templates from disk/embedded
func (s *TemplateStore) Reload() error {
	return s.loadTemplates()
}

var templateNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// generateTemplateID derives a UUID v5 so a template keeps its ID across restarts
func generateTemplateID(docType DocType, paperSize PaperSize, orientation Orientation) string {
	name := fmt.Sprintf("print-template:%s:%s:%s", docType, paperSize, orientation)
	return uuid.NewSHA1(templateNamespace, []byte(name)).String()
}
