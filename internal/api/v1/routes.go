package v1

import (
	"taskman/internal/api/v1/handlers"
	"taskman/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Auth
	auth := api.Group("/auth")
	auth.Post("/signup", handlers.Signup)
	auth.Post("/login", handlers.Login)

	// Profile
	auth.Get("/profile", middleware.UseToken, handlers.GetProfile)
	auth.Put("/profile", middleware.UseToken, handlers.UpdateProfile)
	auth.Post("/profile/picture", middleware.UseToken, handlers.UploadProfilePicture)

	// Tasks
	taskRoutes := api.Group("/tasks", middleware.UseToken)
	taskRoutes.Post("/", handlers.CreateTask)
	taskRoutes.Get("/", handlers.ListTasks)
	taskRoutes.Patch("/:id", handlers.UpdateTaskStatus)
	taskRoutes.Delete("/:id", handlers.DeleteTask)
}
