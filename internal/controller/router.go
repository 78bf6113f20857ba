package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c *controller) Mux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIDMw)
	r.Use(c.requestLoggingMw)

	r.Get("/healthz", c.handleHealth)
	r.Get("/api/config", c.handleConfig)
	r.Get("/api/search", c.handleSearch)
	r.HandleFunc("/ws", c.handleWS)

	return r
}
