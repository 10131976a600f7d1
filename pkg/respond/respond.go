// Package respond writes the JSON and redirect responses of the web surface.
package respond

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as the response body. Page state is per browser, so
// responses are never cached.
func JSON(w http.ResponseWriter, r *http.Request, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func Error(w http.ResponseWriter, r *http.Request, code int, message string) {
	JSON(w, r, code, map[string]string{"error": message})
}

// Redirect answers a form submission with 303 See Other so the browser
// follows up with a GET.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusSeeOther)
}
