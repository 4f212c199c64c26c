package handler

import (
	"errors"
	"path"
	"strings"

	"github.com/erp/bizdesk/internal/infrastructure/storage"
	"github.com/gin-gonic/gin"
)

// FileHandler serves objects of the local storage backend. S3 deployments
// hand out presigned URLs instead.
type FileHandler struct {
	BaseHandler
	storage storage.ObjectStorage
}

// NewFileHandler creates a new FileHandler
func NewFileHandler(objects storage.ObjectStorage) *FileHandler {
	return &FileHandler{
		storage: objects,
	}
}

// Get handles GET /files/*key
func (h *FileHandler) Get(c *gin.Context) {
	key := strings.TrimPrefix(c.Param("key"), "/")
	if key == "" {
		h.BadRequest(c, "File key is required")
		return
	}

	obj, err := h.storage.Get(c.Request.Context(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		h.NotFound(c, "File not found")
		return
	}
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	c.Header("Cache-Control", "private, max-age=300")
	sendFile(c, path.Base(obj.Key), obj.ContentType, obj.Data, c.Query("download") != "")
}
