package handlers

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"drills-server/db"
	"drills-server/drill"
	"drills-server/ingestion"
	"drills-server/middleware"
	"drills-server/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	recentLimit      = 5
)

func listLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	if err != nil || limit < 1 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

// AdminDashboard renders the admin dashboard with metrics and recent activity.
// GET /admin/dashboard
func AdminDashboard(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		totals, err := store.AdminTotals(ctx)
		if err != nil {
			log.Printf("Error computing admin totals: %v", err)
		}
		subjects, err := store.SubjectStats(ctx)
		if err != nil {
			log.Printf("Error fetching subject stats: %v", err)
		}
		recentAdminEvents, err := store.ListAdminEvents(ctx, recentLimit)
		if err != nil {
			log.Printf("Error fetching recent admin events: %v", err)
		}
		recentErrors, err := store.ListErrorLogs(ctx, recentLimit)
		if err != nil {
			log.Printf("Error fetching recent error logs: %v", err)
		}

		c.HTML(http.StatusOK, "admin_dashboard", gin.H{
			"Title":             "Drills Admin Dashboard",
			"UserID":            middleware.UserID(c),
			"Totals":            totals,
			"Subjects":          subjects,
			"RecentAdminEvents": recentAdminEvents,
			"RecentErrors":      recentErrors,
		})
	}
}

// AdminListSubjects lists subjects with their question counts.
// GET /admin/subjects
func AdminListSubjects(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := store.SubjectStats(c.Request.Context())
		if err != nil {
			log.Printf("Error querying subject stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve subjects"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"subjects": stats})
	}
}

// AdminSetQuestionActive moves a question in or out of the eligible pool.
// PATCH /admin/questions/:question_id/active
func AdminSetQuestionActive(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		questionID, err := strconv.Atoi(c.Param("question_id"))
		if err != nil || questionID < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question id"})
			return
		}
		var req models.QuestionActiveRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		ctx := c.Request.Context()
		err = store.SetQuestionActive(ctx, questionID, *req.IsActive)
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
			return
		}
		if err != nil {
			log.Printf("Error updating question %d: %v", questionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update question"})
			return
		}

		action := "question_deactivated"
		if *req.IsActive {
			action = "question_activated"
		}
		store.LogAdminEvent(ctx, middleware.UserID(c), action, fmt.Sprintf("question:%d", questionID), "")
		c.JSON(http.StatusOK, gin.H{"id": questionID, "is_active": *req.IsActive})
	}
}

// AdminQuestionStats reports attempts and accuracy per question so weak items can be retired.
// GET /admin/question_stats?subject_id=
func AdminQuestionStats(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var subjectID *int
		if raw := c.Query("subject_id"); raw != "" {
			id, err := strconv.Atoi(raw)
			if err != nil || id < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject_id"})
				return
			}
			subjectID = &id
		}

		stats, err := store.QuestionStats(c.Request.Context(), subjectID)
		if err != nil {
			log.Printf("Error querying question stats: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve question stats"})
			return
		}
		for i := range stats {
			stats[i].Accuracy = drill.Accuracy(models.AnswerStats{Attempted: stats[i].TimesAttempted, Correct: stats[i].CorrectCount})
		}
		c.JSON(http.StatusOK, gin.H{"questions": stats})
	}
}

// AdminErrorLogs lists the most recent ingestion errors.
// GET /admin/error_logs
func AdminErrorLogs(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := store.ListErrorLogs(c.Request.Context(), listLimit(c))
		if err != nil {
			log.Printf("Error querying error logs: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve error logs"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"error_logs": logs})
	}
}

// AdminEvents lists the most recent admin events.
// GET /admin/events
func AdminEvents(store db.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := store.ListAdminEvents(c.Request.Context(), listLimit(c))
		if err != nil {
			log.Printf("Error querying admin events: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve admin events"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events})
	}
}

// TriggerIngestion allows admin to manually trigger ingestion for a subject.
// POST /admin/ingest/:subject_slug
func TriggerIngestion(store db.Store, bankPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("subject_slug")
		actor := middleware.UserID(c)
		ctx := c.Request.Context()

		res, err := ingestion.ProcessSubjectData(ctx, store, slug, bankPath)
		if err != nil {
			log.Printf("Manual ingestion failed for %s: %v", slug, err)
			store.LogAdminEvent(ctx, actor, "manual_ingestion_failed", slug, fmt.Sprintf("Error: %v", err))
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("Ingestion failed: %v", err)})
			return
		}

		notes := fmt.Sprintf("%d new questions, %d skipped", res.Inserted, res.Skipped)
		store.LogAdminEvent(ctx, actor, "manual_ingestion_success", slug, notes)
		c.JSON(http.StatusOK, gin.H{
			"message":  fmt.Sprintf("Ingestion for subject '%s' completed.", slug),
			"inserted": res.Inserted,
			"skipped":  res.Skipped,
		})
	}
}
