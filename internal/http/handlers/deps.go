package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tiendaza/internal/config"
	"tiendaza/internal/session"
)

type Deps struct {
	Sessions       *session.Store
	CatalogHandler *CatalogHandler
	CartHandler    *CartHandler
	PublishHandler *PublishHandler
}

func NewDeps(store *session.Store, cfg config.Config) *Deps {
	return &Deps{
		Sessions:       store,
		CatalogHandler: &CatalogHandler{},
		CartHandler:    &CartHandler{},
		PublishHandler: &PublishHandler{MaxUploadBytes: cfg.MaxUploadBytes},
	}
}

// WithSession attaches the caller's session, minting a sid cookie for new
// visitors.
func WithSession(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("started", time.Now())
		sess, created := store.Ensure(c.Cookies("sid"))
		if created {
			c.Cookie(&fiber.Cookie{Name: "sid", Value: sess.ID, Path: "/", HTTPOnly: true, SameSite: "Lax"})
		}
		c.Locals("sid", sess.ID)
		c.Locals("session", sess)
		return c.Next()
	}
}

func current(c *fiber.Ctx) *session.Session {
	return c.Locals("session").(*session.Session)
}
