package printing

import (
	"context"
	"time"
)

// RenderRequest is one HTML page set to print. Zero Margins and Timeout use
// the renderer defaults.
type RenderRequest struct {
	HTML        string
	Title       string
	PaperSize   PaperSize
	Orientation Orientation
	Margins     Margins
	// FooterHTML repeats on every page; elements with the pageNumber and
	// totalPages classes are filled in by Chromium.
	FooterHTML string
	Timeout    time.Duration
}

// RenderResult is the printed PDF
type RenderResult struct {
	PDFData        []byte
	PageCount      int
	RenderDuration time.Duration
}

// PDFRenderer prints HTML to PDF
type PDFRenderer interface {
	Render(ctx context.Context, req *RenderRequest) (*RenderResult, error)
	Close() error
}

// RenderErrorCode classifies printing failures
type RenderErrorCode string

const (
	ErrCodeRenderTimeout    RenderErrorCode = "RENDER_TIMEOUT"
	ErrCodeRenderFailed     RenderErrorCode = "RENDER_FAILED"
	ErrCodeInvalidHTML      RenderErrorCode = "INVALID_HTML"
	ErrCodeInvalidPaperSize RenderErrorCode = "INVALID_PAPER_SIZE"
	ErrCodeTemplateNotFound RenderErrorCode = "TEMPLATE_NOT_FOUND"
)

// RenderError is returned by renderers and the template store
type RenderError struct {
	Code    RenderErrorCode
	Message string
	Cause   error
}

// NewRenderError returns a RenderError wrapping cause, which may be nil
func NewRenderError(code RenderErrorCode, message string, cause error) *RenderError {
	return &RenderError{Code: code, Message: message, Cause: cause}
}

func (e *RenderError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

func (e *RenderError) Unwrap() error { return e.Cause }
