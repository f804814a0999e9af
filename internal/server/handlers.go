package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/datahaven/aclfs/internal/logger"
	"github.com/datahaven/aclfs/pkg/acl"
	"github.com/datahaven/aclfs/pkg/aclspec"
	"github.com/datahaven/aclfs/pkg/datasite"
	"github.com/datahaven/aclfs/pkg/feed"
)

type handlers struct {
	service *acl.Service
	lister  *datasite.Lister
	hub     *feed.Hub
}

// permissionsResponse is the wire shape of a resolved permission set.
type permissionsResponse struct {
	Path         string                           `json:"path"`
	GoverningDir string                           `json:"governing_dir"`
	Pattern      string                           `json:"pattern"`
	Permissions  map[aclspec.AccessLevel][]string `json:"permissions"`
	IsPublic     bool                             `json:"is_public"`
	Summary      []string                         `json:"summary"`
	Limits       *aclspec.Limits                  `json:"limits,omitempty"`
}

func newPermissionsResponse(set *acl.EffectivePermissionSet) permissionsResponse {
	return permissionsResponse{
		Path:         set.Path,
		GoverningDir: set.GoverningDir,
		Pattern:      set.Pattern,
		Permissions:  set.Snapshot(),
		IsPublic:     set.IsPublic(),
		Summary:      set.Summary(),
		Limits:       set.Limits,
	}
}

// errorResponse is the wire shape of every API error.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (h *handlers) getPermissions(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, aclspec.NewError(aclspec.ErrInvalidArgument, "path query parameter is required", ""))
		return
	}

	set, err := h.service.Resolve(path)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPermissionsResponse(set))
}

// mutationRequest is the POST /api/v1/permissions body.
type mutationRequest struct {
	Path       string `json:"path"`
	User       string `json:"user"`
	Permission string `json:"permission"`
	Action     string `json:"action"`
}

func (h *handlers) postPermissions(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, aclspec.WrapError(aclspec.ErrInvalidArgument, "malformed request body", "", err))
		return
	}

	set, err := h.service.Update(r.Context(), req.Path, req.User, aclspec.AccessLevel(req.Permission), acl.Action(req.Action))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newPermissionsResponse(set))
}

func (h *handlers) getFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := datasite.ListParams{Search: query.Get("search")}
	var err error
	if params.Limit, err = intParam(query.Get("limit")); err != nil {
		writeError(w, aclspec.NewError(aclspec.ErrInvalidArgument, "limit must be an integer", ""))
		return
	}
	if params.Offset, err = intParam(query.Get("offset")); err != nil {
		writeError(w, aclspec.NewError(aclspec.ErrInvalidArgument, "offset must be an integer", ""))
		return
	}

	page, err := h.lister.List(r.Context(), query.Get("datasite"), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// eventsResponse is the GET /api/v1/events reply.
type eventsResponse struct {
	Events []feed.Event `json:"events"`
}

func (h *handlers) getEvents(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		var err error
		if since, err = strconv.ParseUint(raw, 10, 64); err != nil {
			writeError(w, aclspec.NewError(aclspec.ErrInvalidArgument, "since must be a non-negative integer", ""))
			return
		}
	}

	events, err := h.hub.ReplaySince(since)
	if err != nil {
		writeError(w, err)
		return
	}
	if events == nil {
		events = []feed.Event{}
	}

	writeJSON(w, http.StatusOK, eventsResponse{Events: events})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to encode response: %v", err)
	}
}

// writeError maps engine error codes onto HTTP statuses: invalid input
// is 400, concurrent write conflicts are 409, paths outside any
// datasite are 422, and unreadable stored policies are 500.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := ""

	switch {
	case aclspec.IsCode(err, aclspec.ErrInvalidArgument), aclspec.IsCode(err, aclspec.ErrPatternSyntax):
		status = http.StatusBadRequest
	case aclspec.IsCode(err, aclspec.ErrConcurrentWrite):
		status = http.StatusConflict
	case aclspec.IsCode(err, aclspec.ErrPathOutsideScope):
		status = http.StatusUnprocessableEntity
	}

	var engineErr *aclspec.Error
	if errors.As(err, &engineErr) {
		code = engineErr.Code.String()
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
