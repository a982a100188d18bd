package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/internal/services"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// maxUploadSize caps a single document upload at 50 MiB
const maxUploadSize = 50 << 20

type DocumentHandler struct {
	documentRepo *repositories.DocumentRepository
	blobs        services.BlobStore
	audit        *services.AuditRecorder
	bucket       string
}

func NewDocumentHandler(documentRepo *repositories.DocumentRepository, blobs services.BlobStore, audit *services.AuditRecorder, bucket string) *DocumentHandler {
	return &DocumentHandler{
		documentRepo: documentRepo,
		blobs:        blobs,
		audit:        audit,
		bucket:       bucket,
	}
}

// Upload accepts one multipart file, stores the blob, then the row
func (h *DocumentHandler) Upload(c *gin.Context) {
	clientID, err := scopedClientID(c, c.PostForm("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, errors.ErrorResponse{
			Error:   errors.ErrValidation.Code,
			Message: "file field is required",
		})
		return
	}
	if fileHeader.Size > maxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, errors.ErrorResponse{
			Error:   "FILE_TOO_LARGE",
			Message: "File exceeds the upload limit",
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respondError(c, errors.WrapError(err, "INTERNAL_ERROR", "Failed to read upload", errors.ErrInternalServer.Status))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(c, errors.WrapError(err, "INTERNAL_ERROR", "Failed to read upload", errors.ErrInternalServer.Status))
		return
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	doc := &models.Document{
		ID:          uuid.New(),
		ClientID:    clientID,
		UploadedBy:  currentUserID(c),
		Name:        fileHeader.Filename,
		ContentType: contentType,
		SizeBytes:   fileHeader.Size,
	}
	doc.StoragePath = fmt.Sprintf("clients/%s/documents/%s/%s", clientID, doc.ID, fileHeader.Filename)

	if category := c.PostForm("category"); category != "" {
		doc.Category = &category
	}

	if err := h.blobs.Upload(c.Request.Context(), h.bucket, doc.StoragePath, data, contentType); err != nil {
		respondError(c, errors.WrapError(err, "UPLOAD_FAILED", "Failed to store document", errors.ErrInternalServer.Status))
		return
	}

	if err := h.documentRepo.Create(c.Request.Context(), doc); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &doc.ClientID,
		UserID:     doc.UploadedBy,
		Action:     "document_uploaded",
		EntityType: "document",
		EntityID:   &doc.ID,
		Metadata: map[string]interface{}{
			"name":       doc.Name,
			"size_bytes": doc.SizeBytes,
		},
	})

	c.JSON(http.StatusCreated, doc)
}

func (h *DocumentHandler) List(c *gin.Context) {
	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	page, limit := pagination(c)

	var category *string
	if cat := c.Query("category"); cat != "" {
		category = &cat
	}

	docs, total, err := h.documentRepo.List(c.Request.Context(), clientID, category, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"total":     total,
		"page":      page,
		"limit":     limit,
	})
}

// Download streams the blob back with its stored content type
func (h *DocumentHandler) Download(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	doc, err := h.documentRepo.GetByID(c.Request.Context(), id, clientID)
	if err != nil {
		respondError(c, err)
		return
	}

	data, err := h.blobs.Download(c.Request.Context(), h.bucket, doc.StoragePath)
	if err != nil {
		respondError(c, errors.WrapError(err, "DOWNLOAD_FAILED", "Failed to fetch document", errors.ErrInternalServer.Status))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.Name))
	c.Data(http.StatusOK, doc.ContentType, data)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, errors.ErrBadRequest)
		return
	}

	clientID, err := scopedClientID(c, c.Query("client_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.documentRepo.SoftDelete(c.Request.Context(), id, clientID); err != nil {
		respondError(c, err)
		return
	}

	h.audit.Record(c.Request.Context(), models.AuditEvent{
		ClientID:   &clientID,
		UserID:     currentUserID(c),
		Action:     "document_deleted",
		EntityType: "document",
		EntityID:   &id,
		Metadata:   map[string]interface{}{},
	})

	c.JSON(http.StatusOK, gin.H{"message": "Document deleted"})
}
