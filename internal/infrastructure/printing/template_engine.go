package printing

import (
	"bytes"
	"context"
	"html/template"
	"maps"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TemplateEngine handles rendering HTML templates with business data.
// It uses Go's html/template package with locale-aware formatting functions.
type TemplateEngine struct {
	format  *Formatter
	funcMap template.FuncMap
}

// TemplateEngineOption configures the template engine
type TemplateEngineOption func(*TemplateEngine)

// WithFuncs adds or overrides template functions
func WithFuncs(funcs template.FuncMap) TemplateEngineOption {
	return func(e *TemplateEngine) {
		maps.Copy(e.funcMap, funcs)
	}
}

// NewTemplateEngine creates a template engine for a locale and currency
func NewTemplateEngine(locale, currencyCode string, opts ...TemplateEngineOption) (*TemplateEngine, error) {
	format, err := NewFormatter(locale, currencyCode)
	if err != nil {
		return nil, err
	}

	e := &TemplateEngine{format: format}
	e.funcMap = template.FuncMap{
		// Locale formatting
		"money":       format.Money,
		"decimal":     format.Decimal,
		"quantity":    format.Quantity,
		"percent":     format.Percent,
		"date":        format.Date,
		"dateTime":    format.DateTime,
		"title":       format.Title,
		"statusLabel": format.StatusLabel,
		"t":           format.T,

		// String utilities
		"truncate": truncate,
		"upper":    strings.ToUpper,
		"lower":    strings.ToLower,
		"trim":     strings.TrimSpace,
		"join":     strings.Join,
		"lines":    lines,

		// Arithmetic
		"add":    add,
		"sub":    sub,
		"mul":    mul,
		"isZero": isZero,

		// Conditional
		"default": defaultFunc,
		"empty":   empty,
		"seq":     seq,

		"safeHTML": safeHTML,
		"now":      time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Formatter returns the locale formatter backing the template functions
func (e *TemplateEngine) Formatter() *Formatter {
	return e.format
}

// RenderTemplateRequest represents a request to render a template
type RenderTemplateRequest struct {
	// Template is the print template to render
	Template *StaticTemplate
	// Data is the document view model bound to the template
	Data any
}

// RenderTemplateResult contains the rendered HTML output
type RenderTemplateResult struct {
	HTML           string
	RenderDuration time.Duration
}

// Render renders a print template with the provided data
func (e *TemplateEngine) Render(ctx context.Context, req *RenderTemplateRequest) (*RenderTemplateResult, error) {
	if req == nil {
		return nil, NewRenderError(ErrCodeInvalidHTML, "render request is nil", nil)
	}
	if req.Template == nil {
		return nil, NewRenderError(ErrCodeTemplateNotFound, "template is nil", nil)
	}
	if err := ctx.Err(); err != nil {
		return nil, NewRenderError(ErrCodeRenderTimeout, "template rendering cancelled", err)
	}

	startTime := time.Now()
	html, err := e.RenderString(req.Template.ID, req.Template.Content, req.Data)
	if err != nil {
		return nil, err
	}

	return &RenderTemplateResult{
		HTML:           html,
		RenderDuration: time.Since(startTime),
	}, nil
}

// RenderString renders a template string with the provided data
func (e *TemplateEngine) RenderString(name, content string, data any) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", NewRenderError(ErrCodeInvalidHTML, "template content is empty", nil)
	}

	tmpl, err := template.New(name).Funcs(e.funcMap).Parse(content)
	if err != nil {
		return "", NewRenderError(ErrCodeInvalidHTML, "failed to parse template", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", NewRenderError(ErrCodeRenderFailed, "failed to execute template", err)
	}
	return buf.String(), nil
}

// GetFuncMap returns a copy of the template function map
func (e *TemplateEngine) GetFuncMap() template.FuncMap {
	funcMap := make(template.FuncMap, len(e.funcMap))
	maps.Copy(funcMap, e.funcMap)
	return funcMap
}

// truncate truncates a string to max runes with optional suffix
func truncate(s string, max int, suffix ...string) string {
	suf := "..."
	if len(suffix) > 0 {
		suf = suffix[0]
	}
	runes := []rune(s)
	sufRunes := []rune(suf)
	if len(runes) <= max {
		return s
	}
	if max <= len(sufRunes) {
		return string(sufRunes[:max])
	}
	return string(runes[:max-len(sufRunes)]) + suf
}

// lines splits free text so templates can emit one <br> per line
func lines(s string) []string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\r\n", "\n"))
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func add(a, b any) decimal.Decimal {
	return toDecimal(a).Add(toDecimal(b))
}

func sub(a, b any) decimal.Decimal {
	return toDecimal(a).Sub(toDecimal(b))
}

func mul(a, b any) decimal.Decimal {
	return toDecimal(a).Mul(toDecimal(b))
}

func isZero(v any) bool {
	return toDecimal(v).IsZero()
}

func seq(n int) []int {
	out := make([]int, 0, max(n, 0))
	for i := range n {
		out = append(out, i+1)
	}
	return out
}

func empty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []string:
		return len(val) == 0
	case *time.Time:
		return val == nil || val.IsZero()
	case time.Time:
		return val.IsZero()
	case decimal.Decimal:
		return val.IsZero()
	case bool:
		return !val
	case int:
		return val == 0
	}
	return false
}

func defaultFunc(def, val any) any {
	if empty(val) {
		return def
	}
	return val
}

// safeHTML marks a string as safe HTML, bypassing automatic escaping.
// SECURITY: Only use with trusted, non-user-generated content.
func safeHTML(s string) template.HTML {
	return template.HTML(s)
}

// toDecimal converts various types to decimal.Decimal
func toDecimal(v any) decimal.Decimal {
	switch val := v.(type) {
	case decimal.Decimal:
		return val
	case *decimal.Decimal:
		if val == nil {
			return decimal.Zero
		}
		return *val
	case int:
		return decimal.NewFromInt(int64(val))
	case int32:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case float32:
		return decimal.NewFromFloat(float64(val))
	case float64:
		return decimal.NewFromFloat(val)
	case string:
		d, err := decimal.NewFromString(val)
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// toTime converts various types to time.Time
func toTime(v any) time.Time {
	switch val := v.(type) {
	case time.Time:
		return val
	case *time.Time:
		if val == nil {
			return time.Time{}
		}
		return *val
	case string:
		formats := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, f := range formats {
			if t, err := time.Parse(f, val); err == nil {
				return t
			}
		}
		return time.Time{}
	case int64:
		return time.Unix(val, 0)
	default:
		return time.Time{}
	}
}
