package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/reportload/internal/core"
	"github.com/go-chi/chi/v5"
)

// multipartOverhead is headroom above the file size limit for form fields
// and part headers.
const multipartOverhead = 1 << 20

// typeView is one entry of GET /api/types.
type typeView struct {
	Key        string   `json:"key"`
	Group      string   `json:"group"`
	Label      string   `json:"label"`
	Columns    []string `json:"columns"`
	Required   []string `json:"required"`
	UniqueKeys []string `json:"uniqueKeys"`
}

func (s *Server) handleListTypes(w http.ResponseWriter, r *http.Request) {
	var views []typeView
	for _, info := range s.service.Types() {
		def, err := core.Get(info.Key)
		if err != nil {
			continue
		}
		v := typeView{
			Key:        info.Key,
			Group:      info.Group,
			Label:      info.Label,
			Required:   def.RequiredHeaders(),
			UniqueKeys: def.UniqueKeys(),
		}
		for _, c := range def.Columns() {
			v.Columns = append(v.Columns, c.Source)
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("%d types registered", len(views)),
		Data:       views,
	})
}

// handleIngest loads the multipart "file" field as typeKey. With ?stream=true
// the file is parsed lazily straight from the request body instead of being
// buffered first.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	typeKey := chi.URLParam(r, "typeKey")
	if _, err := core.Get(typeKey); err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	maxSize := s.cfg.Ingest.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	mr, err := r.MultipartReader()
	if err != nil {
		respondError(w, r, fmt.Errorf("invalid form: %w", err), http.StatusBadRequest)
		return
	}

	var (
		result *core.BulkResult
		found  bool
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			respondError(w, r, readError(err), statusForRead(err))
			return
		}
		if part.FormName() != "file" {
			part.Close()
			continue
		}

		found = true
		name := part.FileName()
		if streamRequested(r) {
			result, err = s.service.IngestStream(r.Context(), typeKey, name, part)
		} else {
			var data []byte
			data, err = io.ReadAll(part)
			if err != nil {
				part.Close()
				respondError(w, r, readError(err), statusForRead(err))
				return
			}
			result, err = s.service.Ingest(r.Context(), typeKey, name, data)
		}
		part.Close()
		if err != nil {
			respondError(w, r, err, statusFor(err))
			return
		}
		break
	}

	if !found {
		respondError(w, r, errors.New("no file provided"), http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Message:    summary(result),
		Data:       result,
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	result, ok := s.service.Run(runID)
	if !ok {
		writeJSON(w, http.StatusNotFound, Envelope{
			StatusCode: http.StatusNotFound,
			Message:    fmt.Sprintf("run %s not found", runID),
		})
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Message:    summary(result),
		Data:       result,
	})
}

func (s *Server) handleRecentRuns(w http.ResponseWriter, r *http.Request) {
	runs := s.service.RecentRuns()
	writeJSON(w, http.StatusOK, Envelope{
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("%d recent runs", len(runs)),
		Data:       runs,
	})
}

// handleHealth reports database reachability and run slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	message := "ok"
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			message = "database unreachable"
		}
	}
	writeJSON(w, status, Envelope{
		StatusCode: status,
		Message:    message,
		Data:       s.service.LimiterStatus(),
	})
}

func streamRequested(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("stream"))
	return err == nil && v
}

// summary renders the human readable message of a BulkResult.
func summary(res *core.BulkResult) string {
	return fmt.Sprintf("Processed %d rows: %d created, %d updated, %d failed",
		res.Total, res.Created, res.Updated, res.Failed)
}

// readError maps body read failures, turning the MaxBytesReader limit into
// core.ErrFileTooLarge.
func readError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Errorf("request body: %w", core.ErrFileTooLarge)
	}
	return fmt.Errorf("read upload: %w", err)
}

func statusForRead(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}
