package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordInstanceID(t *testing.T) {
	registered := testutil.ToFloat64(instanceIDsTotal.WithLabelValues(StatusRegistered))
	duplicates := testutil.ToFloat64(duplicateInstancesTotal)

	RecordInstanceID(StatusRegistered)
	RecordInstanceID(StatusDuplicate)

	assert.Equal(t, registered+1, testutil.ToFloat64(instanceIDsTotal.WithLabelValues(StatusRegistered)))
	assert.Equal(t, duplicates+1, testutil.ToFloat64(duplicateInstancesTotal))
}

func TestWindowGauge(t *testing.T) {
	clears := testutil.ToFloat64(windowClearsTotal)

	SetWindowSize(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(windowSize))

	RecordWindowClear()
	assert.Equal(t, float64(0), testutil.ToFloat64(windowSize))
	assert.Equal(t, clears+1, testutil.ToFloat64(windowClearsTotal))
}

func TestHandler(t *testing.T) {
	RecordCanonicalError("circular")
	ObserveCanonicalBytes(128)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `canonical_errors_total{type="circular"}`)
	assert.Contains(t, rec.Body.String(), "canonical_bytes_bucket")
}
