package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"

	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/common/validation"
	"assistance-portal/internal/form/locale"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/form/wizard"
	"assistance-portal/internal/models"
)

var createSessionSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {
		"language": {"type": "string", "enum": ["en", "ar"]},
		"theme": {"type": "string", "enum": ["light", "dark"]}
	}
}`)

var setFieldsSchema = validation.MustCompile(`{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {"type": "string"}
}`)

var gotoSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["step"],
	"properties": {"step": {"type": "integer"}}
}`)

var cancelSchema = validation.MustCompile(`{
	"type": "object",
	"properties": {"choice": {"type": "string", "enum": ["", "discard", "save", "stay"]}}
}`)

var nameSyncSchema = validation.MustCompile(`{
	"type": "object",
	"required": ["field"],
	"properties": {"field": {"type": "string", "enum": ["fullNameEn", "fullNameAr"]}}
}`)

var sessionFieldCodes = fieldCodes{"language": stderrors.ErrCodeInvalidLanguage}

// Reasons a name translation was not applied.
const (
	reasonNothingToTranslate = "NOTHING_TO_TRANSLATE"
	reasonTargetEdited       = "TARGET_EDITED_BY_USER"
	reasonStale              = "STALE_TRANSLATION"
)

type sessionState struct {
	ID                string                       `json:"id"`
	CurrentStep       int                          `json:"currentStep"`
	Submitted         bool                         `json:"submitted"`
	Language          string                       `json:"language"`
	Direction         string                       `json:"direction"`
	Theme             string                       `json:"theme"`
	FormData          models.ApplicationDocument   `json:"formData"`
	Errors            []validators.ValidationError `json:"errors,omitempty"`
	HasUnsavedChanges bool                         `json:"hasUnsavedChanges"`
	Receipt           *models.SubmissionReceipt    `json:"receipt,omitempty"`
}

func stateOf(c *wizard.Controller) sessionState {
	prefs := c.Preferences()
	return sessionState{
		ID:                c.ID(),
		CurrentStep:       c.CurrentStep(),
		Submitted:         c.Submitted(),
		Language:          prefs.Language,
		Direction:         prefs.Direction(),
		Theme:             prefs.Theme,
		FormData:          c.Document(),
		Errors:            c.FieldErrors(),
		HasUnsavedChanges: c.HasUnsavedChanges(),
		Receipt:           c.Receipt(),
	}
}

type fieldsResponse struct {
	sessionState
	Feedback []validators.ValidationError `json:"feedback,omitempty"`
}

type transitionResponse struct {
	sessionState
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

type cancelResponse struct {
	wizard.CancelResult
	State sessionState `json:"state"`
}

type reviewResponse struct {
	Language  string                 `json:"language"`
	Direction string                 `json:"direction"`
	Complete  bool                   `json:"complete"`
	Sections  []wizard.ReviewSection `json:"sections"`
}

type nameSyncResponse struct {
	Applied bool                `json:"applied"`
	Field   string              `json:"field,omitempty"`
	Value   string              `json:"value,omitempty"`
	Reason  string              `json:"reason,omitempty"`
	Notice  *stderrors.Response `json:"notice,omitempty"`
	State   *sessionState       `json:"state,omitempty"`
}

// preferences resolves the request language from the lang query parameter
// or Accept-Language.
func (s *Server) preferences(r *http.Request) locale.Preferences {
	q := r.URL.Query()
	return locale.Preferences{
		Language: locale.Match(q.Get("lang"), r.Header.Get("Accept-Language"), s.cfg.DefaultLanguage),
		Theme:    q.Get("theme"),
	}.Normalize()
}

// withSession runs fn on the session named in the path. An explicit lang
// or theme query parameter also switches the live session's preferences.
func (s *Server) withSession(r *http.Request, fn func(*wizard.Controller) error) error {
	q := r.URL.Query()
	lang, theme := q.Get("lang"), q.Get("theme")
	return s.sessions.With(r.Context(), chi.URLParam(r, "id"), s.preferences(r), func(c *wizard.Controller) error {
		if lang != "" || theme != "" {
			p := c.Preferences()
			if lang != "" {
				p.Language = locale.Match(lang, "", p.Language)
			}
			if theme != "" {
				p.Theme = theme
			}
			c.SetPreferences(p)
		}
		return fn(c)
	})
}

// wizardError maps controller errors onto API errors.
func wizardError(id string, err error) error {
	var stdErr *stderrors.StandardError
	switch {
	case errors.As(err, &stdErr):
		return stdErr
	case errors.Is(err, wizard.ErrSessionNotFound):
		return stderrors.NewSessionNotFoundError(id)
	case errors.Is(err, wizard.ErrAlreadySubmitted):
		return stderrors.NewInvalidTransitionError("application already submitted")
	case errors.Is(err, wizard.ErrInvalidStep):
		return stderrors.NewInvalidTransitionError(err.Error())
	case errors.Is(err, wizard.ErrUnknownField),
		errors.Is(err, wizard.ErrInvalidChoice),
		errors.Is(err, wizard.ErrNotSyncable):
		return stderrors.NewValidationError(stderrors.ErrCodeInvalidRequest, "Request body is invalid", err.Error())
	}
	return stderrors.NewInternalError(err)
}

func (s *Server) writeWizardError(w http.ResponseWriter, r *http.Request, err error) {
	stderrors.WriteError(w, wizardError(chi.URLParam(r, "id"), err))
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req locale.Preferences
	if err := decode(body, createSessionSchema, sessionFieldCodes, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}

	prefs := s.preferences(r)
	if req.Language != "" {
		prefs.Language = req.Language
	}
	if req.Theme != "" {
		prefs.Theme = req.Theme
	}
	id := s.sessions.Create(prefs.Normalize())

	var state sessionState
	err = s.sessions.With(r.Context(), id, prefs, func(c *wizard.Controller) error {
		state = stateOf(c)
		return nil
	})
	if err != nil {
		stderrors.WriteError(w, wizardError(id, err))
		return
	}
	w.Header().Set("Location", "/api/wizard/sessions/"+id)
	stderrors.WriteJSON(w, http.StatusCreated, state)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var state sessionState
	err := s.withSession(r, func(c *wizard.Controller) error {
		state = stateOf(c)
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, state)
}

// fieldOrder applies the country first so ID and phone normalize against
// the new country in the same request.
func fieldOrder(values map[string]string) []string {
	var order []string
	if _, ok := values[models.FieldCountry]; ok {
		order = append(order, models.FieldCountry)
	}
	for _, step := range validators.Steps {
		for _, f := range step.Fields {
			if _, ok := values[f.Name]; ok && f.Name != models.FieldCountry {
				order = append(order, f.Name)
			}
		}
	}
	return order
}

func (s *Server) handleSetFields(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var values map[string]string
	if err := decode(body, setFieldsSchema, nil, &values); err != nil {
		stderrors.WriteError(w, err)
		return
	}
	for field := range values {
		if !validators.IsKnownField(field) {
			s.writeWizardError(w, r, fmt.Errorf("%w: %s", wizard.ErrUnknownField, field))
			return
		}
	}

	var resp fieldsResponse
	err = s.withSession(r, func(c *wizard.Controller) error {
		for _, field := range fieldOrder(values) {
			feedback, err := c.SetField(field, values[field])
			if err != nil {
				return err
			}
			if feedback != nil {
				resp.Feedback = append(resp.Feedback, *feedback)
			}
		}
		resp.sessionState = stateOf(c)
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	var (
		resp   transitionResponse
		status int
	)
	err := s.withSession(r, func(c *wizard.Controller) error {
		result, err := c.Next(r.Context())
		if err != nil {
			return err
		}
		resp.sessionState = stateOf(c)
		switch {
		case result.Receipt != nil:
			status = http.StatusCreated
		case len(result.Errors) > 0:
			first := result.FirstError()
			verr := stderrors.NewApplicationValidationFailedError(
				fmt.Sprintf("step %d: %d field errors, first %s %s", result.Step, len(result.Errors), first.Field, first.Code))
			status = verr.HTTPStatus
			resp.Error = string(verr.Code)
			resp.Message = first.Message
			resp.Details = verr.Details
		default:
			status = http.StatusOK
		}
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, status, resp)
}

func (s *Server) handlePrevious(w http.ResponseWriter, r *http.Request) {
	var state sessionState
	err := s.withSession(r, func(c *wizard.Controller) error {
		if _, err := c.Previous(r.Context()); err != nil {
			return err
		}
		state = stateOf(c)
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleGoto(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req struct {
		Step int `json:"step"`
	}
	if err := decode(body, gotoSchema, nil, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}

	var state sessionState
	err = s.withSession(r, func(c *wizard.Controller) error {
		if err := c.EditFromReview(r.Context(), req.Step); err != nil {
			return err
		}
		state = stateOf(c)
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, state)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req struct {
		Choice wizard.CancelChoice `json:"choice"`
	}
	if err := decode(body, cancelSchema, nil, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}

	var resp cancelResponse
	err = s.withSession(r, func(c *wizard.Controller) error {
		result, err := c.Cancel(r.Context(), req.Choice)
		if errors.Is(err, wizard.ErrInvalidChoice) || errors.Is(err, wizard.ErrAlreadySubmitted) {
			return err
		}
		if err != nil {
			return stderrors.NewSessionStoreFailedError(err)
		}
		resp.CancelResult = result
		resp.State = stateOf(c)
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	if resp.Exited {
		s.sessions.Remove(chi.URLParam(r, "id"))
	}
	stderrors.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	err := s.withSession(r, func(c *wizard.Controller) error {
		if err := c.Reset(r.Context()); err != nil {
			return stderrors.NewSessionStoreFailedError(err)
		}
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	s.sessions.Remove(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReview(w http.ResponseWriter, r *http.Request) {
	var resp reviewResponse
	err := s.withSession(r, func(c *wizard.Controller) error {
		prefs := c.Preferences()
		resp.Language = prefs.Language
		resp.Direction = prefs.Direction()
		resp.Sections = c.Review()
		resp.Complete = true
		for _, section := range resp.Sections {
			if !section.Complete {
				resp.Complete = false
			}
		}
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, resp)
}

// handleNameSync translates one name field into the other. The session is
// not locked while the AI call runs, so edits made meanwhile win and the
// translation is dropped. AI failures come back as a notice, never as an
// error status.
func (s *Server) handleNameSync(w http.ResponseWriter, r *http.Request) {
	body, err := s.readBody(w, r)
	if err != nil {
		stderrors.WriteError(w, err)
		return
	}
	var req struct {
		Field string `json:"field"`
	}
	if err := decode(body, nameSyncSchema, nil, &req); err != nil {
		stderrors.WriteError(w, err)
		return
	}

	var tr *wizard.TranslationRequest
	err = s.withSession(r, func(c *wizard.Controller) error {
		var err error
		tr, err = c.RequestTranslation(req.Field)
		return err
	})
	switch {
	case errors.Is(err, wizard.ErrNothingToTranslate):
		stderrors.WriteJSON(w, http.StatusOK, nameSyncResponse{Reason: reasonNothingToTranslate})
		return
	case errors.Is(err, wizard.ErrTargetEdited):
		stderrors.WriteJSON(w, http.StatusOK, nameSyncResponse{Reason: reasonTargetEdited})
		return
	case err != nil:
		s.writeWizardError(w, r, err)
		return
	}

	translated, err := s.translate(r.Context(), tr)
	if err != nil {
		notice := stderrors.Normalize(err).ToResponse()
		stderrors.WriteJSON(w, http.StatusOK, nameSyncResponse{Field: tr.TargetField, Notice: &notice})
		return
	}

	resp := nameSyncResponse{Field: tr.TargetField}
	err = s.withSession(r, func(c *wizard.Controller) error {
		resp.Applied = c.ApplyTranslation(tr, translated)
		if !resp.Applied {
			resp.Reason = reasonStale
		}
		doc := c.Document()
		resp.Value = doc.Value(tr.TargetField)
		state := stateOf(c)
		resp.State = &state
		return nil
	})
	if err != nil {
		s.writeWizardError(w, r, err)
		return
	}
	stderrors.WriteJSON(w, http.StatusOK, resp)
}

func (s *Server) translate(ctx context.Context, tr *wizard.TranslationRequest) (string, error) {
	if s.ai == nil {
		return "", stderrors.NewAINotConfiguredError()
	}
	return s.ai.Translate(ctx, tr.Text, tr.Direction)
}
