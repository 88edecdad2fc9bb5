package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/doctranslate/internal/api/handler"
	"github.com/timmy/doctranslate/internal/api/middleware"
	"github.com/timmy/doctranslate/internal/logger"
)

// Deps are the components the HTTP API exposes.
type Deps struct {
	Documents     handler.DocumentList
	Notifications handler.Notifications
	Form          handler.SubmissionForm
	Prompts       handler.PromptSource
	Journal       handler.SubmissionLister
	MaxFileSize   int64
	CORS          middleware.CORSConfig
	Logger        *logger.Logger
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(deps Deps, mode string) *gin.Engine {
	switch mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetDefault()
	}

	r := gin.New()
	r.MaxMultipartMemory = 32 << 20

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(deps.CORS))

	healthHandler := handler.NewHealthHandler(deps.Documents)
	documentHandler := handler.NewDocumentHandler(deps.Documents)
	notificationHandler := handler.NewNotificationHandler(deps.Notifications)
	formHandler := handler.NewFormHandler(deps.Form, deps.Prompts, deps.MaxFileSize)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Document list
		v1.GET("/documents", documentHandler.List)
		v1.PUT("/documents/date", documentHandler.SetDate)
		v1.POST("/documents/refresh", documentHandler.Refresh)

		// Notifications
		v1.GET("/notifications", notificationHandler.List)
		v1.DELETE("/notifications/:id", notificationHandler.Dismiss)

		// Submission form
		v1.GET("/prompts", formHandler.Prompts)
		v1.GET("/languages", formHandler.Languages)
		v1.GET("/form", formHandler.Get)
		v1.PUT("/form", formHandler.Update)
		v1.POST("/form/file", formHandler.StageFile)
		v1.DELETE("/form/file", formHandler.RemoveFile)
		v1.POST("/form/submit", formHandler.Submit)

		// Journal
		if deps.Journal != nil {
			submissionHandler := handler.NewSubmissionHandler(deps.Journal)
			v1.GET("/submissions", submissionHandler.List)
		}
	}

	return r
}
