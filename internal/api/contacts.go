package api

import (
	"fmt"
	"net/http"

	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/chat"
	"github.com/kelson-cosme/zap-commerce-flow-sub000/internal/models"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	Store *chat.Store
}

func NewContactHandler(store *chat.Store) *ContactHandler {
	return &ContactHandler{Store: store}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Return empty array instead of null
	if contacts == nil {
		contacts = []models.Contact{}
	}

	c.JSON(http.StatusOK, contacts)
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	contacts, err := h.Store.ListContacts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	// Build CSV content
	csv := "Phone Number,Name,Created At\n"
	for _, contact := range contacts {
		csv += fmt.Sprintf("%s,%s,%s\n", contact.PhoneNumber, contact.Name, contact.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, csv)
}
