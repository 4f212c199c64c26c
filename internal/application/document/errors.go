package document

import "github.com/erp/bizdesk/internal/domain/shared"

// ErrStorageDisabled is returned when storing a document without object storage
var ErrStorageDisabled = shared.NewDomainError("STORAGE_DISABLED", "Object storage is not configured")
