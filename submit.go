package appintake

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"

	"github.com/coniferlabs/appintake/session"
)

// Submitter delivers a finished application to its destination. A failure
// must leave the session phase untouched so the caller can retry.
type Submitter interface {
	Submit(ctx context.Context, callbackURL string, data map[string]any) error
}

// SubmitResult reports the outcome of a submission attempt.
type SubmitResult struct {
	Status      string     `json:"status"`
	FieldCount  int        `json:"field_count"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Errors      []string   `json:"errors,omitempty"`
}

const (
	SubmitStatusSubmitted        = "submitted"
	SubmitStatusAlreadySubmitted = "already_submitted"
	SubmitStatusIncomplete       = "incomplete"
	SubmitStatusFailed           = "submission_failed"
)

// Submit is the explicit confirmation action that moves a session past
// reviewing. The readiness check is evaluated here, deterministically,
// rather than as a side effect of tool processing. Nothing is persisted
// unless the submission collaborator succeeds.
func (e *Engine) Submit(ctx context.Context, sessionID string) (*SubmitResult, error) {
	lock := e.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, err := e.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if st.Phase == session.PhaseSubmitted {
		return &SubmitResult{
			Status:      SubmitStatusAlreadySubmitted,
			FieldCount:  len(st.ApplicationData()),
			SubmittedAt: st.SubmittedAt,
		}, nil
	}

	if !st.ReadyToComplete() {
		var errs []string
		for _, f := range st.MissingRequired() {
			errs = append(errs, fmt.Sprintf("Missing required field: %s", f.DisplayName()))
		}
		for _, f := range st.UnconfirmedFields() {
			errs = append(errs, fmt.Sprintf("Unconfirmed field: %s", f.DisplayName()))
		}
		return &SubmitResult{
			Status:     SubmitStatusIncomplete,
			FieldCount: len(st.ApplicationData()),
			Errors:     errs,
		}, nil
	}

	appData := st.ApplicationData()
	flat := make(map[string]any, len(appData))
	for id, v := range appData {
		flat[id] = v.Interface()
	}

	if st.CallbackURL != "" && e.submitter != nil {
		if err := e.submitter.Submit(ctx, st.CallbackURL, flat); err != nil {
			e.logger.Error("submission failed", "session", st.ID, "error", err)
			return &SubmitResult{
				Status:     SubmitStatusFailed,
				FieldCount: len(flat),
				Errors:     []string{err.Error()},
			}, fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
	}

	now := time.Now().UTC()
	st.Phase = session.PhaseSubmitted
	st.SubmittedAt = &now
	if err := e.store.Put(ctx, st); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	e.logger.Info("session submitted", "session", st.ID, "fields", len(flat))
	return &SubmitResult{
		Status:      SubmitStatusSubmitted,
		FieldCount:  len(flat),
		SubmittedAt: &now,
	}, nil
}

// HTTPSubmitter POSTs application data to the callback URL as JSON.
type HTTPSubmitter struct {
	client *http.Client
}

// NewHTTPSubmitter builds a submitter with the given request timeout. The
// timeout is the degradation hook for hanging destinations: a slow
// callback fails the attempt instead of stalling the turn.
func NewHTTPSubmitter(timeout time.Duration) *HTTPSubmitter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPSubmitter{client: &http.Client{Timeout: timeout}}
}

func (s *HTTPSubmitter) Submit(ctx context.Context, callbackURL string, data map[string]any) error {
	body, err := sonic.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode application data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post application data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("callback returned status %d", resp.StatusCode)
	}
	return nil
}
