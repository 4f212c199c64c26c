package handler

import (
	"io"
	"net/http"
	"path"

	companyapp "github.com/erp/bizdesk/internal/application/company"
	"github.com/erp/bizdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// logoFormField is the multipart field carrying the logo upload
const logoFormField = "logo"

// CompanyHandler handles the company profile endpoints
type CompanyHandler struct {
	BaseHandler
	companyService *companyapp.CompanyService
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(companyService *companyapp.CompanyService) *CompanyHandler {
	return &CompanyHandler{
		companyService: companyService,
	}
}

// Get handles GET /company
func (h *CompanyHandler) Get(c *gin.Context) {
	settings, err := h.companyService.Get(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, settings)
}

// Update handles PUT /company
func (h *CompanyHandler) Update(c *gin.Context) {
	var req companyapp.UpdateSettingsRequest
	if !h.bindJSON(c, &req) {
		return
	}

	settings, err := h.companyService.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, settings)
}

// UploadLogo handles POST /company/logo with a multipart "logo" file
func (h *CompanyHandler) UploadLogo(c *gin.Context) {
	file, header, err := c.Request.FormFile(logoFormField)
	if err != nil {
		h.bindError(c, err)
		return
	}
	defer file.Close()

	if header.Size > companyapp.MaxLogoSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Logo cannot exceed 2 MB")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, companyapp.MaxLogoSize+1))
	if err != nil {
		h.bindError(c, err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	settings, err := h.companyService.UploadLogo(c.Request.Context(), contentType, data)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, settings)
}

// Logo handles GET /company/logo
func (h *CompanyHandler) Logo(c *gin.Context) {
	logo, err := h.companyService.Logo(c.Request.Context())
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	if logo == nil {
		h.NotFound(c, "No company logo has been uploaded")
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	sendFile(c, path.Base(logo.Key), logo.ContentType, logo.Data, false)
}
