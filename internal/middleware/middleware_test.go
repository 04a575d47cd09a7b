package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func TestRecovery_PanicReturns500(t *testing.T) {
	h := Recovery(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/archive/x/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "Внутренняя ошибка сервера"}`, w.Body.String())
}

func TestRecovery_AbortHandlerPassesThrough(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	h := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		panic(http.ErrAbortHandler)
	}))

	w := httptest.NewRecorder()
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/archive/x/", nil))
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, logs.Len())
}

func TestReqLogger_LogsCompletion(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := ReqLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("tea"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	done := logs.FilterMessage("HTTP запрос обработан").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, http.StatusTeapot, done[0].ContextMap()["status"])
	assert.EqualValues(t, 3, done[0].ContextMap()["bytes"])
}

func TestReqLogger_LogsAbortedRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := ReqLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/archive/x/", nil))
	})
	assert.Equal(t, 1, logs.FilterMessage("HTTP запрос обработан").Len())
}
