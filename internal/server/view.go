package server

import (
	"net/http"
	"os"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/index"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/pathutil"
)

// handleView serves raw bytes for one already-listed image:
//
//	GET /view?filename=<name>&type=input&subfolder=<subfolder>
//
// The format and rand query parameters are accepted and ignored; clients
// append rand as a cache buster. The listing service itself never interprets
// image bytes, it only hands them over after path validation.
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	if t := q.Get("type"); t != "" && t != "input" {
		http.Error(w, "Unsupported type", http.StatusBadRequest)
		return
	}

	filename := q.Get("filename")
	if filename == "" {
		http.Error(w, "Missing filename", http.StatusBadRequest)
		return
	}

	// Serving is restricted to the extension allowlist; the validator alone
	// would happily resolve non-image files inside the root.
	if !index.IsImageFile(filename) {
		http.Error(w, "Unsupported file type", http.StatusBadRequest)
		return
	}

	path, err := pathutil.ValidateFile(s.root, q.Get("subfolder"), filename)
	if err != nil {
		s.metrics.viewTotal.WithLabelValues("invalid").Inc()
		s.log.Warn().Msg("rejected invalid view path")
		http.Error(w, "Invalid path", http.StatusForbidden)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		// The file vanished between listing and access; a benign race with
		// external filesystem changes, not a server fault.
		s.metrics.viewTotal.WithLabelValues("not_found").Inc()
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	s.metrics.viewTotal.WithLabelValues("ok").Inc()
	http.ServeFile(w, r, path)
}
