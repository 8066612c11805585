package server

import (
	"net/http"
	"strings"
)

func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Document verification API
	mux.HandleFunc("/api/documents", s.handleDocumentsRoute) // GET (list), POST (upload)
	mux.HandleFunc("/api/documents/", s.handleDocumentRoutes)

	// WebSocket progress streams
	mux.HandleFunc("/ws/documents/", s.app.ProgressWS.StreamHandler)

	// Operational endpoints
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/api/status", s.app.APIHandler.StatusHandler)
	mux.HandleFunc("/api/config", s.app.APIHandler.ConfigHandler)

	// Catch-all for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleDocumentsRoute serves the collection endpoint.
func (s *Server) handleDocumentsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.DocumentHandler.ListHandler(w, r)
	case http.MethodPost:
		s.app.DocumentHandler.UploadHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleDocumentRoutes serves /api/documents/{id} and its subresources.
func (s *Server) handleDocumentRoutes(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	switch {
	case path == "/api/documents/upload":
		s.app.DocumentHandler.UploadHandler(w, r)
	case strings.HasSuffix(path, "/process"):
		s.app.DocumentHandler.ProcessHandler(w, r)
	case strings.HasSuffix(path, "/review"):
		s.app.ReviewHandler.SubmitHandler(w, r)
	case strings.HasSuffix(path, "/report"):
		s.app.DocumentHandler.ReportHandler(w, r)
	case strings.HasSuffix(path, "/audit"):
		s.app.DocumentHandler.AuditHandler(w, r)
	case strings.HasSuffix(path, "/progress/latest"):
		s.app.ProgressSSE.LatestHandler(w, r)
	case strings.HasSuffix(path, "/progress"):
		s.app.ProgressSSE.StreamHandler(w, r)
	default:
		// /api/documents/{id}
		switch r.Method {
		case http.MethodGet:
			s.app.DocumentHandler.GetHandler(w, r)
		case http.MethodDelete:
			s.app.DocumentHandler.DeleteHandler(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
