package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/domain"
	"github.com/syllabuzz/syllabuzz/internal/service"
)

// NoteHandler handles document upload, listing, and deletion endpoints.
type NoteHandler struct {
	ingestService *service.IngestService
	searchService *service.SearchService
}

// NewNoteHandler creates a new note handler.
func NewNoteHandler(ingestService *service.IngestService, searchService *service.SearchService) *NoteHandler {
	return &NoteHandler{
		ingestService: ingestService,
		searchService: searchService,
	}
}

// UploadNote handles POST /api/v1/notes. Accepts a multipart form with the
// PDF under "file" and metadata fields alongside it.
func (h *NoteHandler) UploadNote(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing file field"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to open upload"})
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	meta := &service.Metadata{
		Title:       c.PostForm("title"),
		UnitID:      c.PostForm("unit_id"),
		FacultyCode: c.PostForm("faculty_code"),
		Type:        c.PostForm("type"),
		CreatedBy:   c.PostForm("created_by"),
		FileName:    fileHeader.Filename,
	}
	opts := &service.IngestOptions{
		Force: c.Query("force") == "true",
	}

	doc, err := h.ingestService.Ingest(c.Request.Context(), data, meta, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

// ListNotes handles GET /api/v1/notes.
func (h *NoteHandler) ListNotes(c *gin.Context) {
	unitID := c.Query("unit_id")
	docType := c.Query("type")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.searchService.ListDocuments(c.Request.Context(), unitID, docType, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetNote handles GET /api/v1/notes/:id.
func (h *NoteHandler) GetNote(c *gin.Context) {
	doc, err := h.searchService.GetDocument(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{
		"document": doc,
		"file_url": h.ingestService.FileURL(doc),
	}
	if doc.Status == domain.DocumentStatusIncomplete {
		if indexed, err := h.searchService.IndexedChunkCount(c.Request.Context(), doc.ID); err == nil {
			resp["indexed_chunks"] = indexed
		}
	}

	c.JSON(http.StatusOK, resp)
}

// ReingestNote handles POST /api/v1/notes/:id/reingest, re-running the
// pipeline on the stored original.
func (h *NoteHandler) ReingestNote(c *gin.Context) {
	doc, err := h.ingestService.Reingest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// DeleteNote handles DELETE /api/v1/notes/:id.
func (h *NoteHandler) DeleteNote(c *gin.Context) {
	deleted, err := h.ingestService.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true, "vectors_deleted": deleted})
}
