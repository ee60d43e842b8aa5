package api

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/internal/domain/types"
)

const (
	videoField      = "video"
	maxJSONBodySize = 1 << 20
)

// readVideo streams the "video" part of a multipart upload.
func (s *Server) readVideo(w http.ResponseWriter, r *http.Request) (types.Upload, error) {
	if r.ContentLength > s.maxUploadBytes {
		return types.Upload{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, r.ContentLength, s.maxUploadBytes)
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)

	mr, err := r.MultipartReader()
	if err != nil {
		return types.Upload{}, fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return types.Upload{}, fmt.Errorf("%w: missing %q file", ErrBadRequest, videoField)
		}
		if err != nil {
			return types.Upload{}, Wrap("api.read_video", err)
		}
		if part.FormName() != videoField {
			continue
		}

		br := bufio.NewReader(part)
		if _, err := br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return types.Upload{}, fmt.Errorf("%w: %q is empty", ErrBadRequest, videoField)
			}
			return types.Upload{}, Wrap("api.read_video", err)
		}
		return types.Upload{Filename: part.FileName(), Body: br, Size: -1}, nil
	}
}

// handleStart handles POST /api/video/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) error {
	const op = "api.video_start"
	up, err := s.readVideo(w, r)
	if err != nil {
		return Wrap(op, err)
	}
	res, err := s.deps.StartAnalysis(r.Context(), ownerFrom(r.Context()), up)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusAccepted, startResponse{
		SessionID: res.Session.ID,
		Status:    string(res.Session.Status),
		Duplicate: res.Duplicate,
	})
	return nil
}

// handleAnalyze handles POST /api/video/analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) error {
	const op = "api.video_analyze"
	up, err := s.readVideo(w, r)
	if err != nil {
		return Wrap(op, err)
	}
	rec, err := s.deps.UploadAndAnalyze(r.Context(), ownerFrom(r.Context()), up)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// handleProcess handles POST /api/video/process.
func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) error {
	const op = "api.video_process"
	var req processRequest
	if err := decodeJSON(w, r, maxJSONBodySize, &req); err != nil {
		return Wrap(op, err)
	}
	rec, err := s.deps.Process(r.Context(), ownerFrom(r.Context()), req.VideoURL)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// handleScore handles POST /api/video/score. Nothing is stored.
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) error {
	const op = "api.video_score"
	raw, err := annotations.Decode(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		return Wrap(op, err)
	}
	res, err := s.deps.Score(r.Context(), raw)
	if err != nil {
		return Wrap(op, err)
	}
	fallbacks := res.Fallbacks
	if fallbacks == nil {
		fallbacks = []scoring.Dimension{}
	}
	writeJSON(w, http.StatusOK, scoreResponse{
		Results:        res.Scores,
		Fallbacks:      fallbacks,
		WordsPerMinute: res.WPM,
		WordCount:      res.Words,
	})
	return nil
}

// handleSession handles GET /api/video/sessions/{sessionId}.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) error {
	sess, err := s.deps.Session(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "sessionId"))
	if err != nil {
		return Wrap("api.video_session", err)
	}
	writeJSON(w, http.StatusOK, sess)
	return nil
}

// handleHistory handles GET /api/video/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) error {
	const op = "api.video_history"
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			return WrapKind(op, ErrBadRequest, fmt.Errorf("limit must be a positive integer, got %q", q))
		}
		limit = n
	}
	recs, err := s.deps.History(r.Context(), ownerFrom(r.Context()), limit)
	if err != nil {
		return Wrap(op, err)
	}
	writeJSON(w, http.StatusOK, historyResponse{Analyses: recs, Count: len(recs)})
	return nil
}

// handleTestConnection handles GET /api/video/test-connection.
func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) error {
	report, err := s.deps.TestConnection(r.Context())
	if err != nil {
		return WrapKind("api.test_connection", ErrUnavailable, err)
	}
	writeJSON(w, http.StatusOK, report)
	return nil
}

// handleGet handles GET /api/video/{analysisId}.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) error {
	rec, err := s.deps.Get(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisId"))
	if err != nil {
		return Wrap("api.video_get", err)
	}
	writeJSON(w, http.StatusOK, rec)
	return nil
}

// handleDelete handles DELETE /api/video/{analysisId}.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) error {
	if err := s.deps.Delete(r.Context(), ownerFrom(r.Context()), chi.URLParam(r, "analysisId")); err != nil {
		return Wrap("api.video_delete", err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
