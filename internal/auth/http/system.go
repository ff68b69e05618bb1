package http

import (
	"net/http"

	"github.com/boofmebel/auth/internal/auth/store"
	"github.com/boofmebel/auth/pkg/authsdk"
	"github.com/boofmebel/auth/pkg/httpx"
	"github.com/boofmebel/auth/pkg/slogx"
)

// RootHandler answers GET / with a static status.
func RootHandler(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ok"})
}

// LivezHandler always answers 200 while the process is serving.
func LivezHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ok"})
	}
}

// ReadyzHandler answers 503 while the database is unreachable.
func ReadyzHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			slogx.FromContext(r.Context()).Warn("readiness check failed", "err", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable, authsdk.StatusResponse{
				Status: "unavailable",
				Error:  "database unreachable",
			})
			return
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.StatusResponse{Status: "ready"})
	}
}
