package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	var r Recorder

	before := testutil.ToFloat64(WizardTransitions.WithLabelValues("1", "2", "advanced"))
	r.RecordTransition(1, 2, "advanced")
	assert.Equal(t, before+1, testutil.ToFloat64(WizardTransitions.WithLabelValues("1", "2", "advanced")))

	before = testutil.ToFloat64(Submissions.WithLabelValues("accepted"))
	r.RecordSubmission("accepted")
	assert.Equal(t, before+1, testutil.ToFloat64(Submissions.WithLabelValues("accepted")))

	before = testutil.ToFloat64(AIRequests.WithLabelValues("rephrase", "ok"))
	r.RecordAIRequest("rephrase", "ok", 300*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(AIRequests.WithLabelValues("rephrase", "ok")))

	before = testutil.ToFloat64(WorkerJobsFailed.WithLabelValues("record-application", "DATABASE_INSERT_FAILED"))
	r.RecordJob("record-application", "DATABASE_INSERT_FAILED", time.Second)
	assert.Equal(t, before+1, testutil.ToFloat64(WorkerJobsFailed.WithLabelValues("record-application", "DATABASE_INSERT_FAILED")))
}
