package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"vetclinic-server/internal/config"
	"vetclinic-server/internal/handlers"
	"vetclinic-server/internal/middleware"
	"vetclinic-server/internal/models"
	"vetclinic-server/internal/scheduling"
	"vetclinic-server/internal/store"
)

// SetupRoutes configures the application routes.
func SetupRoutes(router *gin.Engine, db *gorm.DB, cfg *config.Config, logger zerolog.Logger) {
	clinicStore := store.NewClinicStore(db)
	engine := scheduling.NewEngine(
		store.NewAppointmentStore(db),
		store.NewPetStore(db),
		clinicStore,
		scheduling.OperatingHours{
			OpenHour:  cfg.Clinic.OpenHour,
			CloseHour: cfg.Clinic.CloseHour,
			Stride:    cfg.Clinic.Stride(),
			Location:  cfg.Clinic.Location,
		},
	)

	authHandler := handlers.NewAuthHandler(db, cfg, logger)
	userHandler := handlers.NewUserHandler(db, logger)
	petHandler := handlers.NewPetHandler(db, logger)
	appointmentHandler := handlers.NewAppointmentHandler(engine, logger)
	clinicHandler := handlers.NewClinicHandler(clinicStore, logger)

	// Public routes (no authentication required)
	public := router.Group("/api/v1")
	{
		authRoutes := public.Group("/auth")
		{
			authRoutes.POST("/register", authHandler.Register)
			authRoutes.POST("/login", authHandler.Login)
			authRoutes.POST("/refresh-token", authHandler.RefreshToken)
		}

		// Anyone can check availability and clinic status before signing up
		public.GET("/appointments/available-slots", appointmentHandler.GetAvailableSlots)
		public.GET("/clinic/status", clinicHandler.GetClinicStatus)
	}

	// Authenticated routes
	private := router.Group("/api/v1")
	private.Use(middleware.AuthMiddleware(cfg))
	{
		authRoutesPrivate := private.Group("/auth")
		{
			authRoutesPrivate.POST("/logout", authHandler.Logout)
			authRoutesPrivate.GET("/profile", authHandler.GetProfile)
			authRoutesPrivate.PUT("/profile", authHandler.UpdateProfile)
		}

		// User management (admin only)
		userRoutes := private.Group("/users")
		userRoutes.Use(middleware.RoleAuthMiddleware(models.RoleAdmin))
		{
			userRoutes.POST("", userHandler.CreateUser)
			userRoutes.GET("", userHandler.GetUsers)
			userRoutes.GET("/:id", userHandler.GetUserByID)
			userRoutes.PUT("/:id", userHandler.UpdateUser)
			userRoutes.DELETE("/:id", userHandler.DeleteUser)
		}

		// Pet registry (ownership enforced inside the handlers)
		petRoutes := private.Group("/pets")
		{
			petRoutes.POST("", petHandler.CreatePet)
			petRoutes.GET("", petHandler.GetPets)
			petRoutes.GET("/:id", petHandler.GetPetByID)
			petRoutes.PUT("/:id", petHandler.UpdatePet)
			petRoutes.DELETE("/:id", petHandler.DeletePet)
		}

		// Appointments (role and ownership rules enforced by the engine)
		appointmentRoutes := private.Group("/appointments")
		{
			appointmentRoutes.POST("", appointmentHandler.CreateAppointment)
			appointmentRoutes.GET("", appointmentHandler.GetAppointments)
			appointmentRoutes.GET("/:id", appointmentHandler.GetAppointmentByID)
			appointmentRoutes.PATCH("/:id/status", appointmentHandler.UpdateAppointmentStatus)
			appointmentRoutes.PATCH("/:id/reschedule", appointmentHandler.RescheduleAppointment)
			appointmentRoutes.DELETE("/:id", appointmentHandler.DeleteAppointment)
		}

		// Clinic status switch (admin only)
		private.PUT("/clinic/status", middleware.RoleAuthMiddleware(models.RoleAdmin), clinicHandler.UpdateClinicStatus)
	}

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})
}
