package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistance-portal/internal/ai"
	stderrors "assistance-portal/internal/common/errors"
	"assistance-portal/internal/form/session"
	"assistance-portal/internal/form/validators"
	"assistance-portal/internal/form/wizard"
	"assistance-portal/internal/models"
)

var stepValues = map[int]map[string]string{
	1: {
		models.FieldFullNameEn:  "Fatima Al Mansoori",
		models.FieldFullNameAr:  "فاطمة المنصوري",
		models.FieldCountry:     "UAE",
		models.FieldNationalID:  "784199012345671",
		models.FieldDateOfBirth: "1990-03-15",
		models.FieldGender:      "female",
		models.FieldStreet:      "12 Al Wasl Road",
		models.FieldCity:        "Dubai",
		models.FieldRegion:      "dubai",
		models.FieldPhone:       "501234567",
		models.FieldEmail:       "fatima@example.ae",
	},
	2: {
		models.FieldMaritalStatus:    "married",
		models.FieldDependents:       "3",
		models.FieldEmploymentStatus: "unemployed",
		models.FieldMonthlyIncome:    "12500",
		models.FieldHousingStatus:    "rented",
	},
	3: {
		models.FieldFinancialSituation: strings.Repeat("s", 60),
		models.FieldReasonForApplying:  "Rent arrears",
	},
}

func createSession(t *testing.T, env *testEnv, body interface{}, headers ...string) sessionState {
	t.Helper()
	rec := env.do(t, http.MethodPost, "/api/wizard/sessions", body, headers...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var state sessionState
	decodeBody(t, rec, &state)
	return state
}

func sessionPath(id, action string) string {
	p := "/api/wizard/sessions/" + id
	if action != "" {
		p += "/" + action
	}
	return p
}

func completeStep(t *testing.T, env *testEnv, id string, step int) {
	t.Helper()
	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), stepValues[step])
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = env.do(t, http.MethodPost, sessionPath(id, "next"), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

// ==========================
// Session lifecycle
// ==========================

func TestCreateSession(t *testing.T) {
	t.Run("defaults to English", func(t *testing.T) {
		env := newTestEnv(t)

		state := createSession(t, env, nil)

		assert.NotEmpty(t, state.ID)
		assert.Equal(t, validators.StepPersonal, state.CurrentStep)
		assert.Equal(t, "en", state.Language)
		assert.Equal(t, "ltr", state.Direction)
		assert.Equal(t, "light", state.Theme)
		assert.False(t, state.HasUnsavedChanges)
	})

	t.Run("Accept-Language selects Arabic", func(t *testing.T) {
		env := newTestEnv(t)

		state := createSession(t, env, nil, "Accept-Language", "ar-AE,ar;q=0.9,en;q=0.5")

		assert.Equal(t, "ar", state.Language)
		assert.Equal(t, "rtl", state.Direction)
	})

	t.Run("body overrides header", func(t *testing.T) {
		env := newTestEnv(t)

		state := createSession(t, env, map[string]string{"language": "en", "theme": "dark"},
			"Accept-Language", "ar")

		assert.Equal(t, "en", state.Language)
		assert.Equal(t, "dark", state.Theme)
	})

	t.Run("invalid language", func(t *testing.T) {
		env := newTestEnv(t)

		rec := env.do(t, http.MethodPost, "/api/wizard/sessions", map[string]string{"language": "fr"})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, string(stderrors.ErrCodeInvalidLanguage), errorCode(t, rec))
	})
}

func TestGetSession_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, sessionPath("missing", ""), nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, string(stderrors.ErrCodeSessionNotFound), errorCode(t, rec))
}

func TestGetSession_ResumesFromStore(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID
	completeStep(t, env, id, 1)
	env.registry.Remove(id)

	rec := env.do(t, http.MethodGet, sessionPath(id, "")+"?lang=ar", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var state sessionState
	decodeBody(t, rec, &state)
	assert.Equal(t, validators.StepHousehold, state.CurrentStep)
	assert.Equal(t, "ar", state.Language)
	assert.Equal(t, "784-1990-1234567-1", state.FormData.NationalID)
}

// ==========================
// Field edits
// ==========================

func TestSetFields_NormalizesAndReportsFeedback(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID

	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{
		models.FieldNationalID: "٧٨٤١٩٩٠١٢٣٤٥٦٧١",
		models.FieldCountry:    "UAE",
		models.FieldEmail:      "not-an-email",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp fieldsResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "784-1990-1234567-1", resp.FormData.NationalID)
	assert.True(t, resp.HasUnsavedChanges)
	require.Len(t, resp.Feedback, 1)
	assert.Equal(t, models.FieldEmail, resp.Feedback[0].Field)
	assert.Equal(t, validators.CodeInvalidEmail, resp.Feedback[0].Code)
}

func TestSetFields_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body interface{}
	}{
		{"unknown field", map[string]string{"nickname": "Fati"}},
		{"non-string value", map[string]interface{}{models.FieldDependents: 3}},
		{"empty object", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			id := createSession(t, env, nil).ID

			rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(stderrors.ErrCodeInvalidRequest), errorCode(t, rec))
		})
	}
}

// ==========================
// Transitions
// ==========================

func TestNext_BlockedReturns422(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID

	rec := env.do(t, http.MethodPost, sessionPath(id, "next"), nil)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp transitionResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, string(stderrors.ErrCodeValidationFailed), resp.Error)
	assert.NotEmpty(t, resp.Message)
	assert.Contains(t, resp.Details, "step 1:")
	assert.Contains(t, resp.Details, "first fullNameEn REQUIRED")
	assert.Equal(t, validators.StepPersonal, resp.CurrentStep)
	require.NotEmpty(t, resp.Errors)
	assert.Equal(t, models.FieldFullNameEn, resp.Errors[0].Field)
}

func TestWizard_FullSubmission(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID

	for step := validators.StepPersonal; step <= validators.StepSituation; step++ {
		completeStep(t, env, id, step)
	}

	rec := env.do(t, http.MethodPost, sessionPath(id, "next"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp transitionResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Submitted)
	assert.Equal(t, wizard.StepSubmitted, resp.CurrentStep)
	require.NotNil(t, resp.Receipt)
	assert.Equal(t, "FA-TEST1", resp.Receipt.Reference)

	require.Len(t, env.backend.apps, 1)
	assert.Equal(t, "FA-TEST1", env.backend.apps[0].Reference)
	_, err := env.store.Load(context.Background(), id)
	assert.ErrorIs(t, err, session.ErrNotFound)

	rec = env.do(t, http.MethodPost, sessionPath(id, "next"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestWizard_SubmissionFailureKeepsAnswers(t *testing.T) {
	env := newTestEnv(t)
	env.backend.err = errors.New("process engine unreachable")
	id := createSession(t, env, nil).ID
	for step := validators.StepPersonal; step <= validators.StepSituation; step++ {
		completeStep(t, env, id, step)
	}

	rec := env.do(t, http.MethodPost, sessionPath(id, "next"), nil)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	var body stderrors.Response
	decodeBody(t, rec, &body)
	assert.Equal(t, string(stderrors.ErrCodeSubmissionFailed), body.Error)
	require.NotNil(t, body.Retryable)
	assert.True(t, *body.Retryable)

	stored, err := env.store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, validators.StepReview, stored.CurrentStep)
	assert.Equal(t, "Fatima Al Mansoori", stored.Document.FullNameEn)
}

func TestPreviousAndGoto(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID
	completeStep(t, env, id, 1)
	completeStep(t, env, id, 2)

	rec := env.do(t, http.MethodPost, sessionPath(id, "previous"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state sessionState
	decodeBody(t, rec, &state)
	assert.Equal(t, validators.StepHousehold, state.CurrentStep)

	rec = env.do(t, http.MethodPost, sessionPath(id, "goto"), map[string]int{"step": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &state)
	assert.Equal(t, validators.StepPersonal, state.CurrentStep)

	rec = env.do(t, http.MethodPost, sessionPath(id, "goto"), map[string]int{"step": 3})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(stderrors.ErrCodeInvalidTransition), errorCode(t, rec))

	rec = env.do(t, http.MethodPost, sessionPath(id, "goto"), map[string]string{"step": "two"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// ==========================
// Cancel and discard
// ==========================

func TestCancel(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID

	rec := env.do(t, http.MethodPost, sessionPath(id, "cancel"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp cancelResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Exited, "nothing entered, leave without asking")

	id = createSession(t, env, nil).ID
	rec = env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{models.FieldCity: "Dubai"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, sessionPath(id, "cancel"), map[string]string{"choice": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Exited)
	assert.True(t, resp.NeedsChoice)

	rec = env.do(t, http.MethodPost, sessionPath(id, "cancel"), map[string]string{"choice": "save"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Exited)
	assert.Zero(t, env.registry.Len(), "exited sessions are no longer live")

	rec = env.do(t, http.MethodGet, sessionPath(id, ""), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var state sessionState
	decodeBody(t, rec, &state)
	assert.Equal(t, "Dubai", state.FormData.City)

	rec = env.do(t, http.MethodPost, sessionPath(id, "cancel"), map[string]string{"choice": "later"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDiscardSession(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID
	completeStep(t, env, id, 1)

	rec := env.do(t, http.MethodDelete, sessionPath(id, ""), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, sessionPath(id, ""), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==========================
// Review
// ==========================

func TestReview_Localized(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID
	for step := validators.StepPersonal; step <= validators.StepSituation; step++ {
		completeStep(t, env, id, step)
	}

	rec := env.do(t, http.MethodGet, sessionPath(id, "review")+"?lang=ar", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp reviewResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, "ar", resp.Language)
	assert.Equal(t, "rtl", resp.Direction)
	assert.True(t, resp.Complete)
	require.Len(t, resp.Sections, 3)

	values := map[string]string{}
	for _, item := range resp.Sections[0].Items {
		values[item.Field] = item.Value
	}
	assert.Equal(t, "دبي", values[models.FieldRegion])
	assert.Equal(t, "١٥/٠٣/١٩٩٠", values[models.FieldDateOfBirth])

	rec = env.do(t, http.MethodGet, sessionPath(id, ""), nil)
	var state sessionState
	decodeBody(t, rec, &state)
	assert.Equal(t, "ar", state.Language, "lang switch sticks to the session")
	assert.Equal(t, "1990-03-15", state.FormData.DateOfBirth)
}

// ==========================
// Name sync
// ==========================

func TestNameSync_Applies(t *testing.T) {
	env := newTestEnv(t)
	env.provider.reply = "فاطمة"
	id := createSession(t, env, nil).ID
	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{models.FieldFullNameEn: "Fatima"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldFullNameEn})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp nameSyncResponse
	decodeBody(t, rec, &resp)
	assert.True(t, resp.Applied)
	assert.Equal(t, models.FieldFullNameAr, resp.Field)
	assert.Equal(t, "فاطمة", resp.Value)
	require.NotNil(t, resp.State)
	assert.Equal(t, "فاطمة", resp.State.FormData.FullNameAr)
}

func TestNameSync_TypedTargetWins(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID
	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{
		models.FieldFullNameEn: "Fatima",
		models.FieldFullNameAr: "فاطمه",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldFullNameEn})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp nameSyncResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Applied)
	assert.Equal(t, reasonTargetEdited, resp.Reason)
	assert.Zero(t, env.provider.calls)
}

func TestNameSync_EditDuringTranslationWins(t *testing.T) {
	env := newTestEnv(t)
	env.provider.reply = "فاطمة"
	id := createSession(t, env, nil).ID
	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{models.FieldFullNameEn: "Fatima"})
	require.Equal(t, http.StatusOK, rec.Code)

	env.provider.hook = func() {
		rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{models.FieldFullNameAr: "فاطمه"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec = env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldFullNameEn})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp nameSyncResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Applied)
	assert.Equal(t, reasonStale, resp.Reason)
	assert.Equal(t, "فاطمه", resp.Value)
}

func TestNameSync_AIFailureIsANotice(t *testing.T) {
	env := newTestEnv(t)
	env.provider.err = &ai.ProviderError{StatusCode: 503, Err: errors.New("overloaded")}
	id := createSession(t, env, nil).ID
	rec := env.do(t, http.MethodPut, sessionPath(id, "fields"), map[string]string{models.FieldFullNameAr: "علي"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldFullNameAr})

	require.Equal(t, http.StatusOK, rec.Code)
	var resp nameSyncResponse
	decodeBody(t, rec, &resp)
	assert.False(t, resp.Applied)
	require.NotNil(t, resp.Notice)
	assert.Equal(t, string(stderrors.ErrCodeAIServiceUnavailable), resp.Notice.Error)

	rec = env.do(t, http.MethodGet, sessionPath(id, ""), nil)
	var state sessionState
	decodeBody(t, rec, &state)
	assert.Empty(t, state.FormData.FullNameEn)
	assert.Equal(t, validators.StepPersonal, state.CurrentStep)
}

func TestNameSync_Rejects(t *testing.T) {
	env := newTestEnv(t)
	id := createSession(t, env, nil).ID

	rec := env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldCity})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, sessionPath(id, "name-sync"), map[string]string{"field": models.FieldFullNameEn})
	require.Equal(t, http.StatusOK, rec.Code)
	var resp nameSyncResponse
	decodeBody(t, rec, &resp)
	assert.Equal(t, reasonNothingToTranslate, resp.Reason)
}
