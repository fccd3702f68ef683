package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assistance-portal/internal/form/session"
	"assistance-portal/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func writeJSON(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "application.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func completeDocument() models.ApplicationDocument {
	return models.ApplicationDocument{
		FullNameEn:         "Fatima Al Mansoori",
		FullNameAr:         "فاطمة المنصوري",
		NationalID:         "784-1990-1234567-1",
		DateOfBirth:        "1990-03-15",
		Gender:             "female",
		Street:             "12 Al Wasl Road",
		City:               "Dubai",
		Region:             "dubai",
		Country:            "UAE",
		Phone:              "50 123 4567",
		Email:              "fatima@example.ae",
		MaritalStatus:      "married",
		Dependents:         "3",
		EmploymentStatus:   "unemployed",
		MonthlyIncome:      "4500",
		HousingStatus:      "rented",
		FinancialSituation: strings.Repeat("x", 60),
		ReasonForApplying:  "Rent arrears after job loss",
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		out, err := run(t, "validate", writeJSON(t, completeDocument()))
		require.NoError(t, err)
		assert.Contains(t, out, "valid")
	})

	t.Run("session envelope", func(t *testing.T) {
		doc := completeDocument()
		doc.NationalID = "784-1990-123"
		out, err := run(t, "validate", writeJSON(t, map[string]interface{}{"formData": doc, "currentStep": 2}))
		require.Error(t, err)
		assert.Contains(t, out, "nationalId")
		assert.Contains(t, out, "INVALID_ID")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := run(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}

func TestCountries(t *testing.T) {
	out, err := run(t, "countries")
	require.NoError(t, err)
	assert.Contains(t, out, "UAE")
	assert.Contains(t, out, "United Arab Emirates")
	assert.Contains(t, out, "+971")

	out, err = run(t, "countries", "--lang", "ar")
	require.NoError(t, err)
	assert.Contains(t, out, "الإمارات العربية المتحدة")
}

func TestFormat(t *testing.T) {
	out, err := run(t, "format", "--country", "UAE", "--lang", "ar", "nationalId", "٧٨٤١٩٩٠١٢٣٤٥٦٧١")
	require.NoError(t, err)
	assert.Contains(t, out, "stored:  784-1990-1234567-1")
	assert.Contains(t, out, "display: ٧٨٤-١٩٩٠-١٢٣٤٥٦٧-١")
	assert.Contains(t, out, "error:   none")

	out, err = run(t, "format", "phone", "12345")
	require.NoError(t, err)
	assert.Contains(t, out, "INVALID_PHONE")

	_, err = run(t, "format", "shoeSize", "42")
	assert.Error(t, err)
}

func TestSessionInspect(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	doc := completeDocument()
	doc.Email = "not-an-email"
	data, err := session.Encode(&models.WizardSession{ID: "abc", Document: doc, CurrentStep: 3}, time.Now(), time.Hour)
	require.NoError(t, err)
	require.NoError(t, client.Set(context.Background(), "wizard:session:abc", data, time.Hour).Err())

	out, err := run(t, "session", "inspect", "--redis-addr", mr.Addr(), "abc")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "wizard:session:abc", got["key"])
	assert.EqualValues(t, 3, got["currentStep"])
	assert.Equal(t, "1h0m0s", got["ttl"])
	assert.Contains(t, out, "INVALID_EMAIL")
	assert.True(t, mr.Exists("wizard:session:abc"))

	_, err = run(t, "session", "inspect", "--redis-addr", mr.Addr(), "missing")
	assert.ErrorContains(t, err, "no session stored")
}
