package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"ai-companion-be/pkg/llm/router"
)

type IHealthController interface {
	RegisterRoutes(r fiber.Router)
	Root(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type healthController struct {
	modelRouter *router.Router
}

func NewHealthController(modelRouter *router.Router) IHealthController {
	return &healthController{
		modelRouter: modelRouter,
	}
}

func (c *healthController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Root)
	r.Get("/health", c.Health)
}

func (c *healthController) Root(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{
		"service": "ai-companion-be",
		"status":  "running",
		"endpoints": []string{
			"POST /chat",
			"POST /upload",
			"GET /documents",
			"DELETE /documents/:id",
			"GET /conversations",
			"GET /conversations/:id",
			"GET /health",
		},
	})
}

// Health probes every generation provider live, so the response reflects
// right-now availability rather than the last request's outcome.
func (c *healthController) Health(ctx *fiber.Ctx) error {
	probeCtx, cancel := context.WithTimeout(ctx.Context(), 5*time.Second)
	defer cancel()

	providers := c.modelRouter.CheckAvailability(probeCtx)

	return ctx.JSON(fiber.Map{
		"status": "healthy",
		"services": fiber.Map{
			"api":       "running",
			"providers": providers,
		},
	})
}
