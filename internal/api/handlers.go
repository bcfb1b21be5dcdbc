package api

import (
	"encoding/json"
	"net/http"
	"time"

	"statusgen/internal/errors"
	"statusgen/internal/paging"
	"statusgen/internal/pipeline"
	"statusgen/internal/streaming"
	"statusgen/internal/tracker"
	"statusgen/internal/version"
)

// reportRequest is the body of POST /report and POST /report/stream.
type reportRequest struct {
	Mode string `json:"mode,omitempty"` // discover | page | finalize | oneshot

	Components  []string `json:"components,omitempty"`
	Whiteboards []string `json:"whiteboards,omitempty"`
	Assignees   []string `json:"assignees,omitempty"`
	MetaBugs    []int    `json:"metabugs,omitempty"`

	IDs      []int `json:"ids,omitempty"`
	Days     int   `json:"days,omitempty"`
	Cursor   int   `json:"cursor,omitempty"`
	PageSize int   `json:"pageSize,omitempty"`

	Format   string `json:"format,omitempty"`
	Model    string `json:"model,omitempty"`
	Voice    string `json:"voice,omitempty"`
	Audience string `json:"audience,omitempty"`
}

func (r *reportRequest) filters() tracker.FilterSet {
	return tracker.FilterSet{
		Components:  r.Components,
		Whiteboards: r.Whiteboards,
		Assignees:   r.Assignees,
		MetaBugs:    r.MetaBugs,
	}
}

func (r *reportRequest) options() paging.ReportOptions {
	return paging.ReportOptions{
		Days:     r.Days,
		Model:    r.Model,
		Voice:    r.Voice,
		Audience: r.Audience,
		Format:   r.Format,
	}
}

func (r *reportRequest) validate() error {
	switch r.Mode {
	case "", "discover", "page", "finalize", "oneshot":
	default:
		return errors.New(errors.InvalidRequest, "unknown mode "+r.Mode, nil)
	}
	switch r.Format {
	case "", "md", "html":
	default:
		return errors.New(errors.InvalidRequest, "format must be md or html", nil)
	}
	if r.Days < 0 {
		return errors.New(errors.InvalidRequest, "days must be non-negative", nil)
	}
	needsFilters := r.Mode == "discover" || r.Mode == "page" ||
		(r.Mode != "finalize" && len(r.IDs) == 0)
	if needsFilters && r.filters().Empty() {
		return errors.New(errors.InvalidRequest, "at least one filter is required", nil)
	}
	return nil
}

func decodeReportRequest(r *http.Request) (*reportRequest, error) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errors.New(errors.InvalidRequest, "malformed JSON body", err)
	}
	if err := req.validate(); err != nil {
		return nil, err
	}
	return &req, nil
}

// handleReport runs one mode of the pagination protocol and returns JSON.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeReportRequest(r)
	if err != nil {
		WriteStatusError(w, s.logger, err)
		return
	}

	ctx := r.Context()
	switch req.Mode {
	case "discover":
		result, err := s.protocol.Discover(ctx, req.filters(), req.Days)
		if err != nil {
			WriteStatusError(w, s.logger, err)
			return
		}
		WriteJSON(w, result, http.StatusOK)

	case "page":
		result, err := s.protocol.Page(ctx, req.filters(), req.Days, req.Cursor, req.PageSize)
		if err != nil {
			WriteStatusError(w, s.logger, err)
			return
		}
		WriteJSON(w, result, http.StatusOK)

	case "finalize":
		result, err := s.protocol.Finalize(ctx, req.IDs, req.filters(), req.options())
		if err != nil {
			WriteStatusError(w, s.logger, err)
			return
		}
		WriteJSON(w, result, http.StatusOK)

	default: // oneshot
		result, err := s.protocol.Oneshot(ctx, req.filters(), req.options())
		if err != nil {
			WriteStatusError(w, s.logger, err)
			return
		}
		WriteJSON(w, result, http.StatusOK)
	}
}

// handleReportStream runs the full pipeline, pushing NDJSON progress events
// as it goes. The client aborts by closing the connection.
func (s *Server) handleReportStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeReportRequest(r)
	if err != nil {
		WriteStatusError(w, s.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	sw := streaming.NewWriter(w)
	if err := sw.Start(); err != nil {
		return
	}

	params := pipeline.Params{
		Filters:  req.filters(),
		IDs:      req.IDs,
		Days:     req.Days,
		Model:    req.Model,
		Voice:    req.Voice,
		Audience: req.Audience,
		Format:   req.Format,
	}
	rc := pipeline.NewContext(params, s.pipeline, sw)
	steps := pipeline.BuildRecipe(params, s.pipeline)

	if _, err := pipeline.Run(r.Context(), steps, rc); err != nil {
		se := errors.AsStatus(err)
		s.logger.Error("Streamed run failed", map[string]interface{}{
			"code":       string(se.Code),
			"trackingId": se.TrackingID,
			"error":      se.Error(),
			"requestID":  GetRequestID(r.Context()),
		})
		sw.Error(se)
		return
	}

	sw.Done(rc.Output, rc.HTML, paging.Stats{
		Total:     len(rc.Candidates),
		Qualified: len(rc.Qualified),
		Trimmed:   rc.TrimmedCount,
	})
}

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	WriteJSON(w, map[string]interface{}{
		"status":  "ok",
		"version": version.Version,
	}, http.StatusOK)
}

// handleStatus reports daemon configuration and uptime.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sources := make([]string, 0, len(s.protocol.Sources))
	for _, src := range s.protocol.Sources {
		sources = append(sources, src.Name())
	}

	WriteJSON(w, map[string]interface{}{
		"version":       version.Info(),
		"uptimeSeconds": int(time.Since(s.startedAt).Seconds()),
		"sources":       sources,
		"authEnabled":   s.tokenHash != "",
	}, http.StatusOK)
}
