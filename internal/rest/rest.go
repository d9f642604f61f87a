package rest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// ErrorResponse is the JSON body returned by handlers for request failures.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// FrontendHandler serves the compiled single page application. Unknown paths
// fall back to the index file so client side routing keeps working after a
// full page reload.
type FrontendHandler struct {
	dir   string
	index string
}

func NewFrontendHandler(dir string, index string) *FrontendHandler {
	return &FrontendHandler{dir: dir, index: index}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requested := strings.TrimPrefix(filepath.Clean(r.URL.Path), "/")
	path := filepath.Join(h.dir, requested)

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		http.ServeFile(w, r, filepath.Join(h.dir, h.index))
		return
	}
	http.ServeFile(w, r, path)
}
