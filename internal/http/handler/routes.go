package handler

import (
	"database/sql"

	"github.com/gofiber/fiber/v2"

	"briefcase/internal/http/middleware"
	"briefcase/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app. Handlers stay
// minimal; all business logic lives in the service layer.
func RegisterRoutes(app *fiber.App, db *sql.DB, auth service.AuthService, docs service.DocumentService, exchange service.ExchangeService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	app.Get("/health", HealthCheck(db))
	app.Get("/healthz", LivenessProbe())

	api := app.Group("/api")
	api.Post("/auth/register", Register(auth))
	api.Post("/auth/login", Login(auth))

	authed := api.Group("", middleware.RequireAuth(auth.VerifyToken))
	authed.Get("/users", ListUsers(auth))

	// Fixed paths before the :id routes so they are matched first.
	authed.Post("/documents/upload", UploadDocument(exchange))
	authed.Get("/documents/download/:id", DownloadDocument(exchange))
	authed.Get("/documents/sent", ListSentDocuments(docs))
	authed.Get("/documents/received", ListReceivedDocuments(docs))
	authed.Get("/documents/:id", GetDocument(docs))
	authed.Delete("/documents/:id", DeleteDocument(docs))
}
