// Package models defines the wire types shared by the refresh endpoint and
// its client.
package models

// RefreshRequest is the body of POST /subfolder_loader/refresh.
// Subfolder "" denotes the input root. Force requests that the server drop
// its cached listing for the subfolder before answering; the widget sets it
// for manual refresh triggers so filesystem changes made after the cache was
// populated become visible.
type RefreshRequest struct {
	NodeID    string `json:"node_id"`
	Subfolder string `json:"subfolder"`
	Force     bool   `json:"force,omitempty"`
}

// RefreshResponse is the body of the refresh reply. Both outcomes are served
// with HTTP 200; Success distinguishes them. FilteredImages is the ordered
// listing for the requested subfolder; Subfolders carries the current
// subfolder selector options so the client can rebuild both selectors from
// one response.
type RefreshResponse struct {
	Success          bool     `json:"success"`
	Error            string   `json:"error,omitempty"`
	Subfolders       []string `json:"subfolders"`
	FilteredImages   []string `json:"filtered_images"`
	CurrentSubfolder string   `json:"current_subfolder,omitempty"`
}
