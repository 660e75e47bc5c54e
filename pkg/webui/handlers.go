package webui

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/haivivi/jimeng/pkg/history"
	"github.com/haivivi/jimeng/pkg/jimeng"
	"github.com/haivivi/jimeng/pkg/storage"
)

// generateForm is the /generate request body. Pointer fields fall back to
// the request defaults when absent.
type generateForm struct {
	Prompt      string   `json:"prompt"`
	Size        string   `json:"size"`
	Count       *int     `json:"count"`
	Seed        *int64   `json:"seed"`
	Scale       *float64 `json:"scale"`
	Watermark   *bool    `json:"watermark"`
	NoWatermark *bool    `json:"no_watermark"`
}

func (f generateForm) request() (jimeng.GenerationRequest, error) {
	req := jimeng.NewGenerationRequest(strings.TrimSpace(f.Prompt))
	if f.Size != "" {
		w, h, err := jimeng.ParseSize(f.Size)
		if err != nil {
			return req, err
		}
		req.Width, req.Height = w, h
	}
	if f.Count != nil {
		req.Count = *f.Count
	}
	if f.Seed != nil {
		req.Seed = *f.Seed
	}
	if f.Scale != nil {
		req.Scale = *f.Scale
	}
	if f.Watermark != nil && f.NoWatermark != nil && *f.Watermark == *f.NoWatermark {
		return req, &jimeng.ValidationError{Field: "watermark", Reason: "watermark and no_watermark disagree"}
	}
	if f.Watermark != nil {
		req.Watermark = *f.Watermark
	}
	if f.NoWatermark != nil {
		req.Watermark = !*f.NoWatermark
	}
	return req, req.Validate()
}

type errorBody struct {
	Status    jimeng.Status `json:"status"`
	Message   string        `json:"message"`
	RequestID string        `json:"request_id,omitempty"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	var form generateForm
	if err := dec.Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req, err := form.request()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.gen.Generate(r.Context(), req)
	if err != nil {
		if jimeng.IsCredential(err) {
			s.logger.Error("generate: server credential rejected", "error", err)
		} else {
			s.logger.Warn("generate", "error", err)
		}
		writeError(w, statusFor(err), err.Error())
		return
	}
	if !result.OK() {
		writeJSON(w, http.StatusBadGateway, errorBody{
			Status:    jimeng.StatusError,
			Message:   result.Message,
			RequestID: result.RequestID,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// statusFor maps pipeline errors to HTTP statuses. A credential error is
// the server's configuration, not the caller's input.
func statusFor(err error) int {
	switch {
	case jimeng.IsValidation(err):
		return http.StatusBadRequest
	case jimeng.IsCredential(err):
		return http.StatusInternalServerError
	case jimeng.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type outputListing struct {
	Files   []string        `json:"files"`
	Entries []history.Entry `json:"entries"`
}

// defaultListLimit caps GET /output unless ?limit= overrides it; limit=0
// lists everything.
const defaultListLimit = 50

func (s *Server) handleOutput(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit: "+v)
			return
		}
		limit = n
	}

	entries, err := history.List(r.Context(), s.store, s.index, limit)
	if err != nil {
		s.logger.Error("list output", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, outputListing{Files: history.Names(entries), Entries: entries})
}

func (s *Server) handleOutputFile(w http.ResponseWriter, r *http.Request) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if _, err := storage.CleanName(name); err != nil {
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	}
	if !jimeng.IsImageName(name) {
		http.NotFound(w, r)
		return
	}

	rc, err := s.store.Read(r.Context(), name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		http.NotFound(w, r)
		return
	case errors.Is(err, storage.ErrInvalidName):
		http.Error(w, "invalid file name", http.StatusBadRequest)
		return
	case err != nil:
		s.logger.Error("read output", "name", name, "error", err)
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("serve output", "name", name, "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Status: jimeng.StatusError, Message: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
