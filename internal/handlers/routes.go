package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/automax/grievance-backend/internal/middleware"
	"github.com/automax/grievance-backend/internal/services"
)

// BodyLimit is the request size the Fiber app must accept so that an
// attachment of services.MaxAttachmentSize fits with its multipart framing.
const BodyLimit = services.MaxAttachmentSize + 1<<20

// SetupRoutes mounts every endpoint on app.
func SetupRoutes(app *fiber.App, grievances *GrievanceHandler, health *HealthHandler, auth *middleware.AuthMiddleware) {
	app.Get("/", health.Root)
	app.Get("/status", health.Status)
	app.Get("/health", health.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Post("/classify", auth.RequireBearer(), grievances.Classify)

	g := app.Group("/grievances")
	g.Get("/", grievances.ListGrievances)
	g.Get("/stats", grievances.GetStats)
	g.Get("/:token_id", grievances.GetGrievance)
	g.Patch("/:token_id/status", grievances.UpdateStatus)
	g.Get("/:token_id/history", grievances.GetHistory)
	g.Post("/:token_id/attachments", auth.RequireBearer(), grievances.AddAttachment)
	g.Get("/:token_id/attachments", grievances.ListAttachments)
}
