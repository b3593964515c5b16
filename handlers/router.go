package handlers

import (
	"github.com/gin-gonic/gin"

	"drills-server/config"
	"drills-server/db"
	"drills-server/drill"
	"drills-server/middleware"
	"drills-server/templates"
)

// NewRouter wires every route onto a fresh gin engine.
func NewRouter(cfg *config.Config, store db.Store, svc *drill.Service) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger()) // Custom logger middleware
	router.HTMLRender = templates.NewRenderer()

	router.GET("/health", Health())
	// Billing provider callbacks carry no user token.
	router.POST("/api/billing/webhook", BillingWebhook())

	authMiddleware := middleware.AuthMiddleware(cfg.Auth)

	router.GET("/dashboard", authMiddleware, Dashboard(svc))

	api := router.Group("/api")
	api.Use(authMiddleware)
	{
		api.GET("/subjects", GetSubjects(svc))
		api.POST("/drills", StartDrill(svc))
		api.GET("/drills/:sid/next", NextDrillItem(svc))
		api.POST("/drills/:sid/answer", AnswerDrillItem(svc))
		api.GET("/kpis", GetKPIs(svc))
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware)
	admin.Use(middleware.RoleCheckMiddleware([]string{"admin"}))
	{
		admin.GET("/dashboard", AdminDashboard(store))
		admin.GET("/subjects", AdminListSubjects(store))
		admin.PATCH("/questions/:question_id/active", AdminSetQuestionActive(store))
		admin.GET("/question_stats", AdminQuestionStats(store))
		admin.GET("/error_logs", AdminErrorLogs(store))
		admin.GET("/events", AdminEvents(store))
		admin.POST("/ingest/:subject_slug", TriggerIngestion(store, cfg.Bank.Path))
	}
	return router
}
