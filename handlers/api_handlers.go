package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"drills-server/drill"
	"drills-server/middleware"
	"drills-server/models"
)

// GetSubjects lists the subject picker entries.
// GET /api/subjects
func GetSubjects(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		subjects, err := svc.Subjects(c.Request.Context())
		if err != nil {
			respondError(c, err, "listing subjects")
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": subjects})
	}
}

// StartDrill samples a new drill session for the caller.
// POST /api/drills
func StartDrill(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CreateSessionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		sid, err := svc.CreateSession(c.Request.Context(), middleware.UserID(c), string(req.Subject), req.Length)
		if err != nil {
			respondError(c, err, "creating drill session")
			return
		}
		c.JSON(http.StatusOK, models.CreateSessionResponse{SessionID: sid})
	}
}

// NextDrillItem returns the next unanswered question, or the summary once the drill is done.
// GET /api/drills/:sid/next
func NextDrillItem(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		next, err := svc.NextItem(c.Request.Context(), c.Param("sid"), middleware.UserID(c))
		if err != nil {
			respondError(c, err, "loading next drill item")
			return
		}
		c.JSON(http.StatusOK, next)
	}
}

// AnswerDrillItem records the answer to one item.
// POST /api/drills/:sid/answer
func AnswerDrillItem(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		if userID == "" {
			respondError(c, drill.ErrUnauthorized, "answering drill item")
			return
		}
		var req models.AnswerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		result, err := svc.SubmitAnswer(c.Request.Context(), models.AnswerSubmission{
			SessionID:   c.Param("sid"),
			UserID:      userID,
			QuestionID:  req.QuestionID,
			OrderIndex:  req.OrderIndex,
			AnswerIndex: req.AnswerIndex,
			ElapsedMs:   req.ElapsedMs,
		})
		if err != nil {
			respondError(c, err, "answering drill item")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// GetKPIs returns the caller's dashboard figures.
// GET /api/kpis
func GetKPIs(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		kpis, err := svc.KPIs(c.Request.Context(), middleware.UserID(c))
		if err != nil {
			respondError(c, err, "computing KPIs")
			return
		}
		c.JSON(http.StatusOK, kpis)
	}
}

// BillingWebhook acknowledges billing provider callbacks. Payments are not processed.
// POST /api/billing/webhook
func BillingWebhook() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := io.Copy(io.Discard, c.Request.Body)
		if err != nil {
			log.Printf("Error reading billing webhook body: %v", err)
		}
		log.Printf("Billing webhook received (%d bytes)", n)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}
}

// Health reports liveness.
// GET /health
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
