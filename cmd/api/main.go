package main

import (
	"log"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"tusach-congdong/internal/config"
	"tusach-congdong/internal/handler"
	"tusach-congdong/internal/middleware"
	"tusach-congdong/internal/repository"
	"tusach-congdong/internal/service"
	"tusach-congdong/internal/service/auth"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := config.NewPostgresDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	redis, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	minioClient, err := config.NewMinIOClient(cfg)
	if err != nil {
		log.Printf("Warning: Failed to connect to MinIO: %v (cover upload will not work)", err)
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, redis, minioClient, cfg)
	handlers := handler.NewHandlers(services)

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, PATCH, DELETE, OPTIONS",
	}))

	setupRoutes(app, handlers, services.Auth)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func setupRoutes(app *fiber.App, h *handler.Handlers, authService auth.Service) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := app.Group("/api/v1")

	authGroup := v1.Group("/auth")
	authGroup.Post("/register", h.Auth.Register)
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/refresh", h.Auth.RefreshToken)

	protected := v1.Group("", middleware.AuthRequired(authService))

	users := protected.Group("/users")
	users.Get("/me", h.User.GetProfile)
	users.Put("/me", h.User.UpdateProfile)
	users.Get("/", middleware.RequireRole("admin"), h.User.List)
	users.Patch("/:id/trusted", middleware.RequireRole("admin"), h.User.SetTrusted)

	books := protected.Group("/books")
	books.Post("/", h.Book.Create)
	books.Get("/", h.Book.List)
	books.Get("/search", h.Book.Search)
	books.Get("/:bookId", h.Book.Get)
	books.Put("/:bookId", h.Book.Update)
	books.Delete("/:bookId", h.Book.Delete)
	books.Post("/:bookId/cover", h.Book.UploadCover)
	books.Post("/:bookId/borrow", h.Borrow.Request)

	borrows := protected.Group("/borrows")
	borrows.Get("/", h.Borrow.List)
	borrows.Get("/:id", h.Borrow.Get)
	borrows.Post("/:id/approve", h.Borrow.Approve)
	borrows.Post("/:id/reject", h.Borrow.Reject)
	borrows.Post("/:id/confirm-received", h.Borrow.ConfirmReceived)
	borrows.Post("/:id/request-return", h.Borrow.RequestReturn)
	borrows.Post("/:id/confirm-returned", h.Borrow.ConfirmReturned)
	borrows.Post("/:id/cancel", h.Borrow.Cancel)

	notifications := protected.Group("/notifications")
	notifications.Get("/", h.Notification.List)
	notifications.Get("/unread-count", h.Notification.GetUnreadCount)
	notifications.Patch("/:id/read", h.Notification.MarkAsRead)
	notifications.Post("/mark-all-read", h.Notification.MarkAllAsRead)
	notifications.Get("/settings", h.Notification.GetSettings)
	notifications.Put("/settings", h.Notification.UpdateSettings)
	notifications.Post("/broadcast", middleware.RequireRole("admin"), h.Notification.Broadcast)

	audit := protected.Group("/audit")
	audit.Get("/recent", middleware.RequireRole("admin"), h.Audit.GetRecentActivities)
}
