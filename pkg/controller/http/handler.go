package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcore/pkg/domain/model"
	"github.com/secmon-lab/grcore/pkg/domain/types"
	"github.com/secmon-lab/grcore/pkg/service/permission"
	"github.com/secmon-lab/grcore/pkg/usecase"
	"github.com/secmon-lab/grcore/pkg/utils/errutil"
	"github.com/secmon-lab/grcore/pkg/utils/safe"
)

const maxBodySize = 1 << 20

type errorResponse struct {
	Error   string       `json:"error"`
	Fields  []fieldError `json:"fields,omitempty"`
	Allowed []string     `json:"allowed,omitempty"`
}

type fieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal response"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	safe.Write(ctx, w, data)
}

// writeError maps rule engine errors to status codes. Unexpected errors are
// logged and reported as 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		te *model.TransitionError
		ve *model.ValidationError
	)

	switch {
	case errors.As(err, &te):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: te.Error(), Allowed: te.Allowed})

	case errors.As(err, &ve):
		resp := errorResponse{Error: ve.Error()}
		for _, f := range ve.Fields {
			resp.Fields = append(resp.Fields, fieldError{Field: f.Field, Reason: f.Reason})
		}
		writeJSON(ctx, w, http.StatusUnprocessableEntity, resp)

	case errors.Is(err, model.ErrValidation):
		writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})

	case errors.Is(err, model.ErrNotFound),
		errors.Is(err, usecase.ErrUnknownSweep),
		errors.Is(err, usecase.ErrUnknownRemapTable):
		writeJSON(ctx, w, http.StatusNotFound, errorResponse{Error: err.Error()})

	case errors.Is(err, model.ErrConflict):
		writeJSON(ctx, w, http.StatusConflict, errorResponse{Error: err.Error()})

	default:
		errutil.HandleHTTP(ctx, w, err, http.StatusInternalServerError)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		ve := &model.ValidationError{}
		ve.AddCause("body", "malformed JSON", err)
		return ve
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		ve := &model.ValidationError{}
		ve.Add(key, "must be a non-negative integer")
		return 0, ve
	}
	return n, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

type riskChangeRequest struct {
	Likelihood      *int              `json:"likelihood"`
	Impact          *int              `json:"impact"`
	State           *types.RiskState  `json:"state"`
	Category        *types.CategoryID `json:"category"`
	AssignmentGroup *types.GroupID    `json:"assignment_group"`
	Owner           *string           `json:"owner"`
	Name            *string           `json:"name"`
	Statement       *string           `json:"statement"`
}

type riskChangeResponse struct {
	Risk     *model.Risk `json:"risk"`
	Warnings []string    `json:"warnings,omitempty"`
}

func (s *Server) patchRisk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req riskChangeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.uc.Cascade.OnRiskFieldChange(ctx, chi.URLParam(r, "id"), model.RiskChange(req), actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	s.uc.Deliver(ctx, result.Notifications)
	writeJSON(ctx, w, http.StatusOK, riskChangeResponse{Risk: result.Risk, Warnings: result.Warnings})
}

type controlStateRequest struct {
	State types.ControlState `json:"state"`
}

type cascadeResponse struct {
	Control  *model.Control `json:"control"`
	Risks    model.Summary  `json:"risks"`
	Issues   model.Summary  `json:"issues"`
	Warnings []string       `json:"warnings,omitempty"`
}

func (s *Server) postControlState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req controlStateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := s.uc.Cascade.OnControlStateChange(ctx, chi.URLParam(r, "id"), req.State, actorFrom(ctx))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveCascade("control_state", result.Summary())
	}
	s.uc.Deliver(ctx, result.Notifications)
	writeJSON(ctx, w, http.StatusOK, cascadeResponse{
		Control:  result.Control,
		Risks:    result.Risks,
		Issues:   result.Issues,
		Warnings: result.Warnings,
	})
}

type sweepResponse struct {
	Kind          types.SweepKind `json:"kind"`
	Summary       model.Summary   `json:"summary"`
	Notifications int             `json:"notifications"`
}

func (s *Server) postSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	kind := types.SweepKind(chi.URLParam(r, "kind"))
	result, err := s.uc.Cascade.OnScheduledSweep(ctx, kind, usecase.SweepOptions{Limit: limit})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	s.uc.Deliver(ctx, result.Notifications)
	writeJSON(ctx, w, http.StatusOK, sweepResponse{
		Kind:          kind,
		Summary:       result.Summary,
		Notifications: len(result.Notifications),
	})
}

type remapResponse struct {
	DryRun     bool          `json:"dry_run"`
	Summary    model.Summary `json:"summary"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func (s *Server) postRemap(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	apply := false
	if raw := r.URL.Query().Get("dry_run"); raw != "" {
		dryRun, err := strconv.ParseBool(raw)
		if err != nil {
			ve := &model.ValidationError{}
			ve.Add("dry_run", "must be a boolean")
			writeError(ctx, w, ve)
			return
		}
		apply = !dryRun
	}

	result, err := s.uc.Cascade.RunRemapTable(ctx, chi.URLParam(r, "table"), apply, actorFrom(ctx), r.URL.Query().Get("start_after"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if s.metrics != nil && apply {
		s.metrics.ObserveCascade("bulk_remap", result.Summary)
	}
	writeJSON(ctx, w, http.StatusOK, remapResponse{
		DryRun:     result.DryRun,
		Summary:    result.Summary,
		NextCursor: result.NextCursor,
	})
}

type bulkCloseRequest struct {
	Source model.Ref `json:"source"`
}

func (s *Server) postBulkClose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := actorFrom(ctx)

	if s.oracle == nil || !s.oracle.HasRole(ctx, actor, permission.RoleManager) {
		writeJSON(ctx, w, http.StatusForbidden, errorResponse{Error: "role " + permission.RoleManager + " is required"})
		return
	}

	var req bulkCloseRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}

	summary, err := s.uc.Cascade.BulkCloseIssues(ctx, req.Source, actor)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.ObserveCascade("bulk_close", *summary)
	}
	writeJSON(ctx, w, http.StatusOK, summary)
}

type orphanResponse struct {
	RelationID string               `json:"relation_id"`
	Left       model.Ref            `json:"left"`
	Right      model.Ref            `json:"right"`
	Reason     usecase.OrphanReason `json:"reason"`
}

func (s *Server) getOrphans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orphans, err := s.uc.Relationship.FindOrphans(ctx, types.RelationKind(chi.URLParam(r, "kind")))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	resp := make([]orphanResponse, 0, len(orphans))
	for _, o := range orphans {
		resp = append(resp, orphanResponse{
			RelationID: o.Relation.ID,
			Left:       o.Relation.Left,
			Right:      o.Relation.Right,
			Reason:     o.Reason,
		})
	}
	writeJSON(ctx, w, http.StatusOK, map[string]any{"orphans": resp})
}

func (s *Server) getPolicyCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.uc.Relationship.PolicyCompliance(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, result)
}

func (s *Server) getStatementPolicy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	policy, err := s.uc.Relationship.PolicyOf(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, policy)
}
