package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/arampall/intelligent-document-extraction/constants"
	"github.com/arampall/intelligent-document-extraction/internal/async"
	"github.com/arampall/intelligent-document-extraction/internal/common"
	"github.com/arampall/intelligent-document-extraction/internal/repository"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"ok": true, "service": "doc-extraction"})
}

type uploadResponse struct {
	DocumentID string `json:"document_id"`
	Duplicate  bool   `json:"duplicate"`
	Queued     bool   `json:"queued"`
}

// handleUpload accepts one multipart file plus doc_type and profile form
// fields, stores it, and queues extraction.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := int64(s.cfg.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("parse form: %v", err))
		return
	}

	docType, ok := constants.ParseDocType(r.FormValue("doc_type"))
	if !ok {
		s.writeError(w, http.StatusBadRequest, "doc_type must be one of RECEIPT, RESUME")
		return
	}
	profileName := r.FormValue("profile")
	if profileName == "" {
		profileName = "default"
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	if constants.MapExtToFormat(filepath.Ext(header.Filename)) == "" {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q", filepath.Ext(header.Filename)))
		return
	}

	profile, err := s.profiles.GetOrCreate(r.Context(), profileName, "", "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dest, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	res, err := s.ingestor.IngestFile(r.Context(), profile.ID, dest, docType)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if res.Skipped {
		s.writeError(w, http.StatusBadRequest, res.Reason)
		return
	}

	queued := false
	if !res.Duplicate {
		err = s.queue.Enqueue(r.Context(), async.Job{
			DocumentID:  res.Document.ID,
			SubmittedAt: time.Now(),
			TraceID:     requestID(r),
		})
		if err != nil {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		queued = true
	}

	s.writeJSON(w, http.StatusAccepted, uploadResponse{
		DocumentID: res.Document.ID,
		Duplicate:  res.Duplicate,
		Queued:     queued,
	})
}

func (s *Server) saveUpload(src io.Reader, name string) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dest := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"-"+filepath.Base(name))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, src); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("write upload: %w", err)
	}
	return dest, nil
}

type ingestDirRequest struct {
	Path    string `json:"path"`
	DocType string `json:"doc_type"`
	Profile string `json:"profile"`
}

func (s *Server) handleIngestDirectory(w http.ResponseWriter, r *http.Request) {
	var req ingestDirRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	docType, ok := constants.ParseDocType(req.DocType)
	if !ok {
		s.writeError(w, http.StatusBadRequest, "doc_type must be one of RECEIPT, RESUME")
		return
	}
	if req.Profile == "" {
		req.Profile = "default"
	}

	profile, err := s.profiles.GetOrCreate(r.Context(), req.Profile, "", "")
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stats, err := s.ingestor.IngestDirectory(r.Context(), profile.ID, req.Path, docType)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	queued := 0
	for _, doc := range stats.Documents {
		err := s.queue.Enqueue(r.Context(), async.Job{
			DocumentID:  doc.ID,
			SubmittedAt: time.Now(),
			TraceID:     requestID(r),
		})
		if err != nil {
			s.logger.Error("enqueue failed", "document_id", doc.ID, "error", err)
			continue
		}
		queued++
	}

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"scanned":    stats.Scanned,
		"ingested":   stats.Ingested,
		"duplicates": stats.Duplicates,
		"skipped":    stats.Skipped,
		"failed":     stats.Failed,
		"queued":     queued,
	})
}

type documentResponse struct {
	Document   *repository.Document   `json:"document"`
	Job        *repository.ExtractJob `json:"job,omitempty"`
	Extraction *repository.Extraction `json:"extraction,omitempty"`
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.docs.GetByID(r.Context(), id)
	if errors.Is(err, common.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "document not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := documentResponse{Document: doc}
	if job, err := s.jobs.LatestForDocument(r.Context(), id); err == nil {
		resp.Job = job
	}
	if ext, err := s.results.GetByDocument(r.Context(), id); err == nil {
		resp.Extraction = ext
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListExtractions(w http.ResponseWriter, r *http.Request) {
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	recs, err := s.results.List(r.Context(), f)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if recs == nil {
		recs = []*repository.Extraction{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"total":       len(recs),
		"extractions": recs,
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := chi.URLParam(r, "format")
	f, err := s.filterFromQuery(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var (
		body        []byte
		contentType string
		fileName    string
	)
	switch format {
	case "csv":
		body, err = s.exporter.ExportCSV(r.Context(), f)
		contentType = "text/csv"
		fileName = "extractions.csv"
	case "json":
		body, err = s.exporter.ExportJSONReport(r.Context(), f)
		contentType = "application/json"
		fileName = "extractions.json"
	case "xlsx":
		body, err = s.exporter.ExportXLSX(r.Context(), f)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		fileName = "extractions.xlsx"
	default:
		s.writeError(w, http.StatusBadRequest, "format must be one of csv, json, xlsx")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// filterFromQuery builds an extraction filter from common query params:
// profile (name), doc_type, category, from, to (YYYY-MM-DD).
func (s *Server) filterFromQuery(r *http.Request) (repository.ExtractionFilter, error) {
	var f repository.ExtractionFilter
	q := r.URL.Query()

	if name := q.Get("profile"); name != "" {
		profile, err := s.profiles.GetByName(r.Context(), name)
		if errors.Is(err, common.ErrNotFound) {
			return f, fmt.Errorf("unknown profile %q", name)
		}
		if err != nil {
			return f, err
		}
		f.ProfileID = profile.ID
	}
	if dt := q.Get("doc_type"); dt != "" {
		docType, ok := constants.ParseDocType(dt)
		if !ok {
			return f, fmt.Errorf("invalid doc_type %q", dt)
		}
		f.DocType = docType
	}
	f.Category = q.Get("category")
	for _, key := range []string{"from", "to"} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		if _, err := time.Parse("2006-01-02", v); err != nil {
			return f, fmt.Errorf("invalid %s date %q, want YYYY-MM-DD", key, v)
		}
		if key == "from" {
			f.FromDate = v
		} else {
			f.ToDate = v
		}
	}
	return f, nil
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

func requestID(r *http.Request) string {
	if id := middleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return uuid.NewString()
}
