package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"drills-server/drill"
	"drills-server/middleware"
)

// Dashboard renders the KPI tiles and the drill launcher for the logged-in user.
// GET /dashboard
func Dashboard(svc *drill.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.UserID(c)
		kpis, err := svc.KPIs(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "rendering dashboard")
			return
		}
		subjects, err := svc.Subjects(c.Request.Context())
		if err != nil {
			respondError(c, err, "rendering dashboard")
			return
		}

		c.HTML(http.StatusOK, "dashboard", gin.H{
			"Title":    "Dashboard",
			"UserID":   userID,
			"KPIs":     kpis,
			"Subjects": subjects,
		})
	}
}
