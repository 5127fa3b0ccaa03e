package handlers

import (
	"fmt"
	"net/http"

	"github.com/KhrystynaYelyseyeva/auth-service/app"
	"github.com/KhrystynaYelyseyeva/auth-service/middleware"
)

// PageHandler serves a minimal HTML shell for a page route. The frontend
// bundle hydrates these; the server's job here is the gate decision that
// already ran in the route middleware.
func PageHandler(deps *app.Dependencies, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verdict := middleware.GetVerdictFromContext(r.Context())

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "<!DOCTYPE html>\n<html><head><title>%s</title></head><body data-authenticated=%q><div id=\"root\"></div></body></html>\n",
			title, boolAttr(verdict.Authenticated()))
	}
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
