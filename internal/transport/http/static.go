package httptransport

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	domainerrors "analytics-gateway/pkg/domain-errors"
	"analytics-gateway/pkg/platform/httputil"
)

// apiPrefixes never fall through to the SPA index; unknown paths under them
// are real 404s.
var apiPrefixes = []string{"/query", "/health", "/metrics", "/api"}

// NewSPAHandler serves a single-page frontend from staticDir. It returns
// false when the directory does not exist, in which case the caller should
// fall back to the JSON info route.
func NewSPAHandler(staticDir string) (http.Handler, bool) {
	info, err := os.Stat(staticDir)
	if err != nil || !info.IsDir() {
		return nil, false
	}

	fileServer := http.FileServer(http.Dir(staticDir))
	index := filepath.Join(staticDir, "index.html")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, prefix := range apiPrefixes {
			if strings.HasPrefix(r.URL.Path, prefix) {
				httputil.WriteError(w, domainerrors.New(domainerrors.CodeNotFound, "resource not found"))
				return
			}
		}

		requested := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
		if fi, err := os.Stat(requested); err == nil && !fi.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}

		// Client-side routes resolve to the SPA entry point.
		http.ServeFile(w, r, index)
	})

	return handler, true
}
