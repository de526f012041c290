package notes

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/export"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/history"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/logger"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/preprocess"
	"github.com/Elliasanisworth/AI-based-handwritting-converter/internal/recognition"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes v as a JSON response with the given status
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("server").Error().Err(err).Msg("Error encoding response")
	}
}

// jsonError writes an {"error": message} response
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleIndex serves the HTML interface
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

// parseUploadForm parses a multipart body, reporting oversized uploads clearly
func (s *Server) parseUploadForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		logger.WithComponent("server").Warn().Err(err).Msg("Error parsing multipart form")
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, fmt.Sprintf("Upload is too large. Maximum size is %dMB. Please compress or resize your images.", s.maxUploadBytes>>20), http.StatusRequestEntityTooLarge)
			return false
		}
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return false
	}
	return true
}

// readUpload reads one multipart file into an Upload
func readUpload(header *multipart.FileHeader) (recognition.Upload, error) {
	f, err := header.Open()
	if err != nil {
		return recognition.Upload{}, fmt.Errorf("opening %s: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return recognition.Upload{}, fmt.Errorf("reading %s: %w", header.Filename, err)
	}

	contentType := strings.ToLower(strings.TrimSpace(header.Header.Get("Content-Type")))
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = preprocess.ContentTypeFromExt(header.Filename)
	}

	return recognition.Upload{
		Filename:    header.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// handleConvert runs every uploaded file through the recognition pipeline
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("server")

	if !s.parseUploadForm(w, r) {
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		jsonError(w, "No files were selected. Please choose one or more images to upload.", http.StatusBadRequest)
		return
	}

	uploads := make([]recognition.Upload, 0, len(headers))
	for _, header := range headers {
		upload, err := readUpload(header)
		if err != nil {
			log.Error().Err(err).Str("filename", header.Filename).Msg("Error reading file data")
			jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
			return
		}
		uploads = append(uploads, upload)
	}

	sess := s.session(w, r)
	conversion := s.service.Convert(r.Context(), sess, uploads)
	log.Info().
		Str("session", sess.ID).
		Int("files", len(uploads)).
		Int("ledger_size", sess.Ledger().Len()).
		Msg("Batch converted")

	writeJSON(w, http.StatusOK, conversion)
}

// handlePreview returns the binarized version of one uploaded image
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !s.parseUploadForm(w, r) {
		return
	}

	headers := r.MultipartForm.File["file"]
	if len(headers) == 0 {
		jsonError(w, "No file was selected. Please choose an image.", http.StatusBadRequest)
		return
	}

	upload, err := readUpload(headers[0])
	if err != nil {
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	data, err := s.service.Preview(upload)
	if err != nil {
		if errors.Is(err, preprocess.ErrDecode) {
			jsonError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.WithComponent("server").Error().Err(err).Str("filename", upload.Filename).Msg("Error building preview")
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// handleHistory returns the session's most recent records. Callers without
// a live session get an empty list and no new session.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := s.service.LookupSession(sessionID(r))

	limit := history.DefaultWindow
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			jsonError(w, "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	writeJSON(w, http.StatusOK, s.service.History(sess, limit))
}

// handleExport renders the posted text and returns it as an attachment
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text   string `json:"text"`
		Format string `json:"format"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, s.maxUploadBytes)).Decode(&body); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	format, err := export.ParseFormat(body.Format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	download, err := s.service.Export(r.Context(), export.Request{Text: body.Text, Format: format})
	if err != nil {
		switch {
		case errors.Is(err, export.ErrRendererUnavailable):
			jsonError(w, err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, export.ErrUnknownFormat):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.WithComponent("server").Error().Err(err).Str("format", string(format)).Msg("Error exporting notes")
			jsonError(w, "Export failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", download.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", download.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(download.Data)))
	w.Write(download.Data)
}

// handleStatus reports engine and renderer availability
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}
