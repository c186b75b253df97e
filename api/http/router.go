package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/artem13815/cvchat/api/http/handlers"
)

// Handlers groups everything Register mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Health        *handlers.HealthHandler
	Conversations *handlers.ConversationHandler
	CV            *handlers.CVHandler
	Models        *handlers.ModelsHandler
}

// Register wires all HTTP routes onto given Fiber app.
func Register(app *fiber.App, h Handlers, authMW fiber.Handler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	// Health and readiness endpoints for probes/monitoring
	v1.Get("/health", h.Health.Health)
	v1.Get("/ready", h.Health.Ready)

	a := v1.Group("/auth")
	a.Post("/register", h.Auth.Register)
	a.Post("/login", h.Auth.Login)

	v1.Get("/models", authMW, h.Models.List)

	conv := v1.Group("/conversations", authMW)
	conv.Post("/", h.Conversations.Create)
	conv.Get("/", h.Conversations.List)
	conv.Get("/:id/messages", h.Conversations.Messages)
	conv.Post("/:id/messages", h.Conversations.Send)
	conv.Delete("/:id/messages", h.Conversations.Clear)
	conv.Delete("/:id/messages/:messageId", h.Conversations.DeleteMessage)
	conv.Post("/:id/greeting", h.Conversations.Greet)
	conv.Post("/:id/skills", h.Conversations.SelectSkills)
	conv.Get("/:id/cv", h.CV.Get)
	conv.Put("/:id/cv/:section", h.CV.PutSection)
	conv.Delete("/:id/cv", h.CV.Reset)
}
