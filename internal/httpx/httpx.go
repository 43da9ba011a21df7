package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// MaxBodyBytes caps every request body and websocket frame.
const MaxBodyBytes = 64 << 10

func WriteJSON(w http.ResponseWriter, v any, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, msg string, code int) {
	WriteJSON(w, map[string]any{"error": msg}, code)
}

func LimitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
}

func Decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	var t T
	LimitBody(w, r)
	err := json.NewDecoder(r.Body).Decode(&t)
	return t, err
}

// TooLarge reports whether err came from a body over MaxBodyBytes.
func TooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// WriteDecodeError answers a failed Decode with 413 or 400.
func WriteDecodeError(w http.ResponseWriter, err error) {
	if TooLarge(err) {
		WriteError(w, "Request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	WriteError(w, "Invalid request body", http.StatusBadRequest)
}

// WantsJSON reports whether the caller is a script rather than a browser page load.
func WantsJSON(r *http.Request) bool {
	if strings.Contains(r.URL.Path, "/api/") {
		return true
	}
	if r.Header.Get("X-Requested-With") == "XMLHttpRequest" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
