package documents

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"coverletter-backend/internal/shared/server/middleware"
	"coverletter-backend/internal/shared/server/respond"
)

const maxUploadSize = 10 << 20 // 10MB

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.create)
	rg.POST("/documents/upload", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.download)
}

type createRequest struct {
	Content  string            `json:"content"`
	DocType  string            `json:"doc_type"`
	Metadata map[string]string `json:"metadata"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	out, err := h.Svc.Create(c.Request.Context(), CreateInput{
		OwnerID:  middleware.UserIDFromContext(c),
		DocType:  req.DocType,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.fail(c, err, "failed to create document")
		return
	}

	c.Set(middleware.DocumentIDKey, out.Document.ID)
	respond.Created(c, toResponse(out.Document, out.ChunkIDs))
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	docType := strings.TrimSpace(c.PostForm("doc_type"))
	if docType == "" {
		docType = TypeResume
	}

	out, err := h.Svc.Upload(c.Request.Context(), middleware.UserIDFromContext(c), docType, fileHeader.Filename, file)
	if err != nil {
		h.fail(c, err, "failed to upload document")
		return
	}

	c.Set(middleware.DocumentIDKey, out.Document.ID)
	respond.Created(c, toResponse(out.Document, out.ChunkIDs))
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch document")
		return
	}
	if doc.OwnerID != middleware.UserIDFromContext(c) {
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		return
	}

	c.Set(middleware.DocumentIDKey, doc.ID)
	respond.JSON(c, http.StatusOK, toResponse(doc, nil))
}

// download streams the uploaded original of a document.
func (h *Handler) download(c *gin.Context) {
	doc, reader, err := h.Svc.OpenFile(c.Request.Context(), middleware.UserIDFromContext(c), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to load document file")
		return
	}
	defer reader.Close()

	contentType := doc.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	fileName := doc.FileName
	if fileName == "" {
		fileName = "document"
	}

	c.Set(middleware.DocumentIDKey, doc.ID)
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, reader)
}

func (h *Handler) list(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	docType := strings.TrimSpace(c.Query("doc_type"))
	if docType != "" && !ValidDocType(docType) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unknown doc_type", nil)
		return
	}

	docs, err := h.Svc.Repo.ListByOwner(c.Request.Context(), middleware.UserIDFromContext(c), docType, limit)
	if err != nil {
		h.fail(c, err, "failed to list documents")
		return
	}

	resp := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, toResponse(doc, nil))
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) fail(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", message, nil)
	}
}
