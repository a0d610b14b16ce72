package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Leganyst/counselling-platform/internal/auth"
	"github.com/Leganyst/counselling-platform/internal/model"
)

type RouterConfig struct {
	AllowOrigins []string
	Production   bool
}

func NewRouter(h *Handler, verifier *auth.Verifier, log *zap.Logger, cfg RouterConfig) *gin.Engine {
	if cfg.Production {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(Recovery(log))
	r.Use(AccessLog(log))
	r.Use(cors.New(corsConfig(cfg.AllowOrigins)))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, Envelope{Success: true, Message: "ok"})
	})

	api := r.Group("/api")
	secured := api.Group("")
	secured.Use(JWTAuth(verifier))
	{
		secured.POST("/bookings", RequireRole(model.RoleStudent), h.CreateBooking)
		secured.GET("/bookings", h.ListBookings)
		secured.GET("/bookings/:id", h.GetBooking)
		secured.GET("/bookings/:id/events", h.ListBookingEvents)
		secured.PATCH("/bookings/:id/status", h.UpdateBookingStatus)

		secured.POST("/counsellors", RequireRole(model.RoleCounsellor), h.RegisterCounsellor)
		// Статический путь регистрируется раньше /counsellors/:id.
		secured.GET("/counsellors/me", RequireRole(model.RoleCounsellor), h.GetMyCounsellor)

		admin := secured.Group("/admin")
		admin.Use(RequireRole(model.RoleAdmin))
		admin.GET("/counsellors/pending", h.ListPendingCounsellors)
		admin.PATCH("/counsellors/:id/verify", h.VerifyCounsellor)
	}

	// Справочник верифицированных консультантов открыт без токена.
	api.GET("/counsellors", h.ListCounsellors)
	api.GET("/counsellors/:id", h.GetCounsellor)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}
	for _, o := range origins {
		if o == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
