package server

import (
	"net/http"

	"mogura/server/application"
	"mogura/server/handler"
)

func Route(settings application.Settings) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(settings))
	mux.Handle("/healthz", handler.NewHealthHandler())
	return mux
}
