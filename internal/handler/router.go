package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter: payer routes need X-User-ID, admin routes need adminToken in X-Admin-Token.
func SetupRouter(h *Handler, adminToken string, gatherer prometheus.Gatherer, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(RecoveryMiddleware(logger))
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	api := r.Group("/api/v1")
	{
		payment := api.Group("/payment")
		payment.Use(UserIdentityMiddleware())
		{
			payment.POST("/activation", h.CreateActivationPayment)
			payment.POST("/session", h.CreateSessionPayment)
			payment.POST("/:code/check", h.CheckPaymentStatus)
		}

		admin := api.Group("/admin")
		admin.Use(AdminTokenMiddleware(adminToken))
		{
			admin.POST("/sync/sweep", h.Sweep)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}
