package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/models"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/pathutil"
)

// errInvalidSubfolder is the generic client-facing message for any rejected
// subfolder value. The offending value itself stays out of responses and logs.
const errInvalidSubfolder = "invalid subfolder"

// handleRefresh validates the requested subfolder, consults the cache, and
// returns the filtered listing. Both outcomes are HTTP 200; non-2xx is
// reserved for transport-level trouble.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.metrics.refreshTotal.WithLabelValues("bad_request").Inc()
		s.writeJSON(w, models.RefreshResponse{Success: false, Error: "malformed request body"})
		return
	}

	// Validation happens before any cache lookup or filesystem read, so a
	// cached entry can never launder an invalid subfolder value.
	if _, err := pathutil.ValidateSubfolder(s.root, req.Subfolder); err != nil {
		if errors.Is(err, pathutil.ErrInvalidPath) {
			s.metrics.refreshTotal.WithLabelValues("invalid").Inc()
			s.log.Warn().Str("node_id", req.NodeID).Msg("rejected invalid subfolder value")
			s.writeJSON(w, models.RefreshResponse{Success: false, Error: errInvalidSubfolder})
			return
		}
		s.metrics.refreshTotal.WithLabelValues("error").Inc()
		s.writeJSON(w, models.RefreshResponse{Success: false, Error: "listing failed"})
		return
	}

	if req.Force {
		s.cache.Invalidate(req.Subfolder)
		s.metrics.invalidations.Inc()
	}

	images, ok := s.cachedImages(req.Subfolder)
	if !ok {
		var err error
		images, err = s.index.Images(req.Subfolder)
		if err != nil {
			// Validation already passed, so this is unexpected; still keep
			// the failure structured.
			s.metrics.refreshTotal.WithLabelValues("error").Inc()
			s.writeJSON(w, models.RefreshResponse{Success: false, Error: "listing failed"})
			return
		}
		if s.cacheEnabled {
			s.cache.Put(req.Subfolder, images)
		}
	}

	s.metrics.refreshTotal.WithLabelValues("ok").Inc()
	s.writeJSON(w, models.RefreshResponse{
		Success:          true,
		Subfolders:       s.index.Subfolders(),
		FilteredImages:   images,
		CurrentSubfolder: req.Subfolder,
	})
}

// cachedImages consults the cache when enabled, counting hits and misses.
func (s *Server) cachedImages(subfolder string) ([]string, bool) {
	if !s.cacheEnabled {
		return nil, false
	}
	images, ok := s.cache.Get(subfolder)
	if ok {
		s.metrics.cacheHits.Inc()
	} else {
		s.metrics.cacheMisses.Inc()
	}
	return images, ok
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error().Err(err).Msg("failed to write response")
	}
}
