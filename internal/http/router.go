package api

import (
	"log"
	stdhttp "net/http"

	intconfig "ridepool/internal/config"
	h "ridepool/internal/http/handlers"
	"ridepool/internal/http/middleware"
	"ridepool/internal/services"

	"github.com/gin-gonic/gin"
)

func NewRouter(env intconfig.Env, coord services.Coordinator) *gin.Engine {
	h.Configure(coord, env.JWTSecret, env.DefaultCurrency)

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS())

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	authn := middleware.Auth(env.JWTSecret)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)
		api.GET("/routes", h.Routes)

		auth := api.Group("/auth")
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)

		users := api.Group("/users", authn)
		users.GET("", h.GetUsers)
		users.GET("/:id", h.GetUserByID)
		users.PATCH("/:id", h.UpdateUser)
		users.DELETE("/:id", h.DeleteUser)

		vehicles := api.Group("/vehicles", authn)
		vehicles.GET("", h.GetVehicles)
		vehicles.GET("/:id", h.GetVehicleByID)
		vehicles.POST("", h.CreateVehicle)
		vehicles.PATCH("/:id", h.UpdateVehicle)
		vehicles.DELETE("/:id", h.DeleteVehicle)

		rides := api.Group("/rides")
		rides.GET("", h.GetRides)
		rides.GET("/:id", h.GetRideByID)
		rides.POST("", authn, h.CreateRide)
		rides.PATCH("/:id", authn, h.UpdateRide)
		rides.DELETE("/:id", authn, h.DeleteRide)

		bookings := api.Group("/bookings", authn)
		bookings.GET("", h.GetBookings)
		bookings.GET("/:id", h.GetBookingByID)
		bookings.POST("", h.PlaceBooking)
		bookings.POST("/:id/cancel", h.CancelBooking)
		bookings.GET("/:id/payment", h.GetBookingPayment)
		bookings.GET("/:id/receipt", h.GetBookingReceipt)

		payments := api.Group("/payments", authn)
		payments.GET("", h.GetPayments)
		payments.GET("/:id", h.GetPaymentByID)

		reviews := api.Group("/reviews")
		reviews.GET("", h.GetReviews)
		reviews.POST("", authn, h.CreateReview)
		reviews.DELETE("/:id", authn, h.DeleteReview)

		groups := api.Group("/groups", authn)
		groups.GET("", h.GetGroups)
		groups.GET("/:id", h.GetGroupByID)
		groups.POST("", h.CreateGroup)
		groups.DELETE("/:id", h.DeleteGroup)
		groups.GET("/:id/members", h.GetGroupMembers)
		groups.POST("/:id/members", h.JoinGroup)
		groups.DELETE("/:id/members", h.LeaveGroup)
	}

	h.SetRouter(r)
	return r
}
