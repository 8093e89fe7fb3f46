package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mcoot/playfield/internal/testutil"
)

func TestLoggingRecordsStatusAndLevel(t *testing.T) {
	logger, capture := testutil.CaptureLogger()

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("missing"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/players/x", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, capture.Contains(`"level":"WARN"`))
	assert.True(t, capture.Contains(`"status":404`))
	assert.True(t, capture.Contains(`"size":7`))
	assert.True(t, capture.Contains(`"path":"/api/v1/players/x"`))
}

func TestLoggingWriterSupportsFlushAndUnwrap(t *testing.T) {
	handler := Logging(testutil.NopLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc := http.NewResponseController(w)
		assert.NoError(t, rc.Flush())

		// The recorder cannot be hijacked; the wrapper reports that instead of panicking
		_, _, err := w.(http.Hijacker).Hijack()
		assert.Error(t, err)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, rec.Flushed)
}

func TestRecoveryCallsPanicHandler(t *testing.T) {
	logger, capture := testutil.CaptureLogger()

	var recovered any
	handler := Recovery(logger, func(w http.ResponseWriter, _ *http.Request, err any) {
		recovered = err
		w.WriteHeader(http.StatusInternalServerError)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/players", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "boom", recovered)
	assert.True(t, capture.Contains("panic recovered"))
}
