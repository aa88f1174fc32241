package api

import (
	"io"
	"net/http"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

type MediaHandler struct {
	Client *whatsapp.Client
}

func NewMediaHandler(client *whatsapp.Client) *MediaHandler {
	return &MediaHandler{Client: client}
}

// UploadMedia handles media file uploads for chat attachments
func (h *MediaHandler) UploadMedia(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File is required"})
		return
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	mimeType := header.Header.Get("Content-Type")

	resp, err := h.Client.UploadMedia(c.Request.Context(), fileBytes, mimeType, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RetrieveMediaURL gets the download URL for a media ID
func (h *MediaHandler) RetrieveMediaURL(c *gin.Context) {
	mediaID := c.Param("id")
	if mediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Media ID required"})
		return
	}

	url, err := h.Client.RetrieveMediaURL(c.Request.Context(), mediaID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// DeleteMedia deletes a media object from the provider
func (h *MediaHandler) DeleteMedia(c *gin.Context) {
	mediaID := c.Param("id")
	if mediaID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Media ID required"})
		return
	}

	if err := h.Client.DeleteMedia(c.Request.Context(), mediaID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Media deleted"})
}
