package handler

import (
	"mime"
	"net/http"
	"strconv"

	"github.com/erp/bizdesk/internal/application/document"
	"github.com/gin-gonic/gin"
)

// renderOptions reads the ?store=true switch of the PDF routes
func renderOptions(c *gin.Context) document.RenderOptions {
	store, _ := strconv.ParseBool(c.Query("store"))
	return document.RenderOptions{Store: store}
}

// sendDocument writes a rendered document. Stored documents are described
// as JSON with their download URL; otherwise the PDF bytes are sent.
func (h *BaseHandler) sendDocument(c *gin.Context, doc *document.Document) {
	if doc.URL != "" {
		h.Success(c, doc)
		return
	}
	c.Header("X-Page-Count", strconv.Itoa(doc.PageCount))
	sendFile(c, doc.FileName, doc.ContentType, doc.Data, c.Query("download") != "")
}

// sendFile writes data inline, or as an attachment when download is set
func sendFile(c *gin.Context, fileName, contentType string, data []byte, download bool) {
	disposition := "inline"
	if download {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": fileName}))
	c.Data(http.StatusOK, contentType, data)
}
