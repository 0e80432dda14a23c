package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/csrf"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"tiendaza/internal/config"
	applog "tiendaza/internal/log"
)

// NewApp wires middleware and routes for the storefront.
func NewApp(cfg config.Config, deps *Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")
	engine.AddFunc("money", Money)

	app := fiber.New(fiber.Config{
		Views:                 engine,
		DisableStartupMessage: true,
		BodyLimit:             cfg.MaxUploadBytes + 64<<10,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Error(c, "server.error", err, nil)
			code := fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok && fe.Code < 500 {
				code = fe.Code
			}
			msg := "Something went wrong. Please try again."
			if code == fiber.StatusNotFound {
				msg = "Page not found"
			}
			if isAPI(c) {
				return c.Status(code).JSON(fiber.Map{"error": msg})
			}
			if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr != nil {
				return c.Status(code).SendString(msg)
			}
			return nil
		},
	})

	app.Use(requestid.New())
	app.Use(logger.New())
	app.Use(helmet.New())
	app.Use(limiter.New(limiter.Config{
		Max:        cfg.RateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			applog.Security(c, "rate.hit", nil)
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
		},
	}))
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })

	app.Use(WithSession(deps.Sessions))
	app.Use(csrf.New(csrf.Config{
		KeyLookup:      "form:csrf",
		CookieName:     "csrf_",
		CookieSameSite: "Lax",
		ContextKey:     "csrf",
		Next: func(c *fiber.Ctx) bool {
			return strings.HasPrefix(c.Path(), "/api/")
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			applog.Security(c, "csrf.fail", nil)
			return c.Status(fiber.StatusForbidden).Render("notfound", fiber.Map{"Message": "Security check failed. Please refresh and try again."})
		},
	}))
	app.Use(func(c *fiber.Ctx) error {
		if tok, ok := c.Locals("csrf").(string); ok {
			c.Locals("CSRFToken", tok)
		}
		return c.Next()
	})

	cat, cart, pub := deps.CatalogHandler, deps.CartHandler, deps.PublishHandler

	// Pages
	app.Get("/", cat.Home)
	app.Post("/refresh", cat.Refresh)
	app.Get("/search", cat.Search)
	app.Get("/listing/:id", cat.Detail)
	app.Get("/listing/:id/image", cat.Image)
	app.Get("/cart", cart.View)
	app.Post("/cart", cart.Add)
	app.Post("/cart/update", cart.Update)
	app.Post("/cart/remove", cart.Remove)
	app.Post("/cart/clear", cart.Clear)
	app.Get("/sell", pub.Form)
	app.Post("/sell", pub.Create)

	// API
	api := app.Group("/api/v1")
	api.Get("/catalog", cat.State)
	api.Post("/catalog/refresh", cat.Refresh)
	api.Get("/catalog/search", cat.Search)
	api.Get("/listings/:id", cat.Detail)
	api.Get("/listings/:id/image", cat.Image)
	api.Post("/listings", pub.Create)
	api.Put("/listings/:id", pub.Edit)
	api.Delete("/listings/:id", pub.Remove)
	api.Get("/cart", cart.View)
	api.Post("/cart/items", cart.Add)
	api.Patch("/cart/items/:id", cart.Update)
	api.Delete("/cart/items/:id", cart.Remove)
	api.Delete("/cart", cart.Clear)

	app.Use(func(c *fiber.Ctx) error {
		return notFound(c, "Page not found")
	})
	return app
}
