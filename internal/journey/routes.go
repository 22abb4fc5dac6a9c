package journey

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes attaches the journey endpoints. The polling reads get their
// own rate limit sized for one poll per interval with headroom for shared
// clinic IPs.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.Limit(120, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		r.Get("/journeys/me", h.GetMine)
		r.Get("/journeys/active", h.ListActive)
	})
	r.Post("/journeys/check-in", h.CheckIn)
	r.Post("/journeys/{station}/complete", h.CompleteStep)
	r.Post("/journeys/{station}/skip", h.SkipStep)
	r.Get("/journeys/me/receipt", h.GetReceipt)
}
