package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"hebrew-rag-platform/middleware"
	"hebrew-rag-platform/services"
	"hebrew-rag-platform/utils"
)

func SetupDocumentRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, documents *services.DocumentService) {
	group := router.Group("/documents")
	group.Use(auth.RequireAuth())

	// Upload a document. "async=true" (or a large file) routes processing
	// through the worker queue.
	group.POST("", func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "Authentication required")
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			utils.RespondWithBadRequest(c, "No file provided", gin.H{"error": err.Error()})
			return
		}
		defer file.Close()

		req := &services.UploadRequest{
			File:    file,
			Header:  header,
			UserID:  userID,
			IsAsync: strings.EqualFold(c.Query("async"), "true"),
		}

		resp, err := documents.ValidateAndProcessUpload(c.Request.Context(), req)
		if err != nil {
			utils.RespondWithBadRequest(c, "Upload failed", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, resp)
	})

	// List the caller's documents.
	group.GET("", func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "Authentication required")
			return
		}

		docs, err := documents.ListDocuments(c.Request.Context(), userID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to list documents", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"documents": docs, "count": len(docs)})
	})

	// Processing status for one document.
	group.GET("/:id", func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "Authentication required")
			return
		}

		documentID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid document id", nil)
			return
		}

		doc, err := documents.GetDocument(c.Request.Context(), documentID)
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load document", nil)
			return
		}
		if doc.UserID != userID {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	// Delete a document with its chunks and stored file.
	group.DELETE("/:id", func(c *gin.Context) {
		userID, ok := middleware.UserID(c)
		if !ok {
			utils.RespondWithUnauthorized(c, "Authentication required")
			return
		}

		documentID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid document id", nil)
			return
		}

		err = documents.DeleteDocument(c.Request.Context(), userID, documentID)
		if errors.Is(err, services.ErrDocumentNotFound) {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to delete document", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "document deleted"})
	})
}
