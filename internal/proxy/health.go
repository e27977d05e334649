package proxy

import "net/http"

type healthResponse struct {
	Status string `json:"status"`
}

// livenessHandler reports that the process serves HTTP.
func livenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		writeJSON(r.Context(), w, healthResponse{Status: "ok"}, http.StatusOK)
	}
}

// readinessHandler answers 503 until the application is listening and again
// once shutdown begins, so load balancers stop routing new generations.
func readinessHandler(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		if !checker.IsReady() {
			writeJSON(r.Context(), w, healthResponse{Status: "not_ready"}, http.StatusServiceUnavailable)
			return
		}
		writeJSON(r.Context(), w, healthResponse{Status: "ready"}, http.StatusOK)
	}
}

// pingHandler is the plain connectivity check some OpenAI clients issue.
func pingHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("pong"))
	}
}
