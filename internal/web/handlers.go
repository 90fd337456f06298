package web

import (
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"ledgerflow/internal/errs"
	"ledgerflow/internal/export"
	"ledgerflow/internal/ingest"
)

// handleValidate sniffs the blob and reports whether it is ingestible.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	key, err := fileKey(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	verdict, err := s.sniffer.Validate(r.Context(), s.ref(key))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"valid":   verdict.Valid,
		"kind":    verdict.Kind.String(),
		"message": verdict.Message,
	})
}

// handleHeaders returns the header row, hitting the extractor's cache when
// the same blob was inspected within the TTL.
func (s *Server) handleHeaders(w http.ResponseWriter, r *http.Request) {
	key, err := fileKey(r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	headers, err := s.headers.Extract(r.Context(), s.ref(key))
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"headers": headers,
	})
}

type ingestionRequest struct {
	Key    string `json:"key"`
	FileID string `json:"fileId"`
	ingest.JobSpec
}

// handleStartIngestion launches an asynchronous job and returns its id.
func (s *Server) handleStartIngestion(w http.ResponseWriter, r *http.Request) {
	var req ingestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, errs.FormatWrap(err, "decoding ingestion request"), http.StatusBadRequest)
		return
	}
	if req.Key == "" || len(req.Mapping) == 0 {
		s.respondError(w, r, errs.Format("ingestion request needs a key and a non-empty mapping"), http.StatusBadRequest)
		return
	}
	fileID := req.FileID
	if fileID == "" {
		fileID = req.Key
	}

	sink := s.sinks(fileID, req.Mapping.Fields())
	jobID, err := s.ingest.StartIngestion(r.Context(), s.ref(req.Key), req.JobSpec, sink)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"jobId": jobID})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := s.ingest.Progress(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, progress)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.ingest.Result(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.ingest.Cancel(chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type exportRequest struct {
	Results     []export.Result `json:"results"`
	LabelPrefix string          `json:"labelPrefix"`
}

// handleExport builds the archive, uploads it, and returns its storage key.
// The archive is built synchronously; the route's write timeout bounds it.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, errs.FormatWrap(err, "decoding export request"), http.StatusBadRequest)
		return
	}
	if len(req.Results) == 0 {
		s.respondError(w, r, errs.Format("export request needs at least one result"), http.StatusBadRequest)
		return
	}
	if req.LabelPrefix == "" {
		req.LabelPrefix = "export"
	}

	path, err := s.archiver.BuildArchive(r.Context(), req.Results, req.LabelPrefix)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}
	defer os.Remove(path)

	f, err := os.Open(path)
	if err != nil {
		s.respondError(w, r, errs.Resource(path, err), http.StatusInternalServerError)
		return
	}
	defer f.Close()

	key := "exports/" + filepath.Base(path)
	if err := s.store.Upload(r.Context(), s.ref(key), f); err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// fileKey decodes the {key} route parameter, which may contain
// URL-encoded path separators.
func fileKey(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "key")
	key, err := url.PathUnescape(raw)
	if err != nil || key == "" {
		return "", errs.Format("invalid file key %q", raw)
	}
	return key, nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
