package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/pdf-converter/api/handlers"
	"github.com/feichai0017/pdf-converter/api/middleware"
	"github.com/feichai0017/pdf-converter/internal/models"
)

// SetupRoutes registers every endpoint. The /jobs group only exists when
// jobsEnabled is set.
func SetupRoutes(r *gin.Engine, h *handlers.Handlers, metrics http.Handler, jobsEnabled bool) {
	r.Use(middleware.CORS())

	r.GET("/", h.Health.Index)
	r.GET("/health", h.Health.Health)
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	r.POST("/convert-pdf-to-word", h.Conversion.Convert(models.KindWord))
	r.POST("/convert-pdf-to-pptx", h.Conversion.Convert(models.KindPPTX))
	r.POST("/convert-pdf-to-text", h.Conversion.Convert(models.KindText))
	r.POST("/compress-pdf", h.Conversion.Convert(models.KindCompress))
	r.POST("/convert-pdf-to-image", h.Conversion.Convert(models.KindImage))

	if jobsEnabled {
		jobs := r.Group("/jobs")
		{
			jobs.POST("/:kind", h.Jobs.Submit)
			jobs.GET("/:id", h.Jobs.Status)
			jobs.GET("/:id/result", h.Jobs.Result)
			jobs.DELETE("/:id", h.Jobs.Cancel)
		}
	}
}
