package api

import (
	"github.com/gin-gonic/gin"

	"github.com/syllabuzz/syllabuzz/internal/api/handler"
	"github.com/syllabuzz/syllabuzz/internal/api/middleware"
	"github.com/syllabuzz/syllabuzz/internal/config"
	"github.com/syllabuzz/syllabuzz/internal/logger"
	"github.com/syllabuzz/syllabuzz/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	ingestService *service.IngestService,
	searchService *service.SearchService,
	questionService *service.QuestionService,
	unitService *service.UnitService,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler()
	noteHandler := handler.NewNoteHandler(ingestService, searchService)
	searchHandler := handler.NewSearchHandler(searchService, questionService)
	questionHandler := handler.NewQuestionHandler(questionService, searchService)
	unitHandler := handler.NewUnitHandler(unitService)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Documents
		v1.POST("/notes", noteHandler.UploadNote)
		v1.GET("/notes", noteHandler.ListNotes)
		v1.GET("/notes/:id", noteHandler.GetNote)
		v1.POST("/notes/:id/reingest", noteHandler.ReingestNote)
		v1.DELETE("/notes/:id", noteHandler.DeleteNote)

		// Search
		v1.POST("/search", searchHandler.Search)

		// Questions
		v1.POST("/questions", questionHandler.AddQuestion)
		v1.GET("/questions/:id", questionHandler.GetQuestion)
		v1.GET("/question-groups/:id", questionHandler.ListGroup)
		v1.GET("/units/:id", unitHandler.GetUnit)
		v1.GET("/units/:id/questions", questionHandler.ListUnitQuestions)

		// Stats
		v1.GET("/stats", searchHandler.GetStats)
	}

	return r
}
