package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"hebrew-rag-platform/middleware"
	"hebrew-rag-platform/models"
	"hebrew-rag-platform/services"
	"hebrew-rag-platform/utils"
)

// SetupQueryRoutes registers the question-answering endpoint. limiters are
// applied after auth; pass the expensive-endpoint rate limiter here since
// every call costs embedding and generation quota.
func SetupQueryRoutes(router *gin.Engine, auth *middleware.AuthMiddleware, search *services.SearchService, limiters ...gin.HandlerFunc) {
	group := router.Group("/query")
	group.Use(auth.RequireAuth())
	group.Use(limiters...)

	group.POST("", func(c *gin.Context) {
		if _, ok := middleware.UserID(c); !ok {
			utils.RespondWithUnauthorized(c, "Authentication required")
			return
		}

		var req models.QueryRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		resp, err := search.Ask(c.Request.Context(), &req)
		if errors.Is(err, services.ErrNoRelevantChunks) {
			c.JSON(http.StatusOK, models.QueryResponse{
				Answer:  "לא נמצא מידע רלוונטי במסמכים. No relevant information was found in the documents.",
				Sources: []models.RetrievedChunk{},
			})
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to answer question", gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, resp)
	})
}
