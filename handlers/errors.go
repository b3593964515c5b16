package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"drills-server/drill"
)

// respondError maps the drill error taxonomy onto HTTP responses. Anything unrecognized is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error, action string) {
	var poolErr *drill.InsufficientPoolError
	switch {
	case errors.Is(err, drill.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, drill.ErrInvalidLength):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_length"})
	case errors.Is(err, drill.ErrInvalidSubject):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subject"})
	case errors.Is(err, drill.ErrInvalidArgument):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_argument"})
	case errors.As(err, &poolErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient_pool", "available": poolErr.Available})
	case errors.Is(err, drill.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	default:
		log.Printf("Error %s: %v", action, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
	}
}
