package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, Config{Level: "warn", Format: "json"})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", slog.String("instance_id", "abc"))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "abc", record["instance_id"])

	require.NoError(t, log.SetLevel("debug"))
	assert.Equal(t, slog.LevelDebug, log.Level())
	assert.Error(t, log.SetLevel("loud"))
}

func TestNewWithWriter_RejectsUnknownLevel(t *testing.T) {
	_, err := NewWithWriter(&bytes.Buffer{}, Config{Level: "verbose"})
	assert.Error(t, err)
}

func TestNewWithWriter_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "connectorid.log")

	var buf bytes.Buffer
	log, err := NewWithWriter(&buf, Config{Format: "text", File: FileConfig{Path: path, MaxSizeMB: 1}})
	require.NoError(t, err)

	log.Info("to both", slog.String("token", "t0ps3cret"))
	require.NoError(t, log.Close())

	assert.Contains(t, buf.String(), "to both")
	assert.NotContains(t, buf.String(), "t0ps3cret")
	assert.FileExists(t, path)
}

func TestMaskingHandler(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewMaskingHandler(slog.NewJSONHandler(&buf, nil)))

	log.With(slog.String("client_secret", "s1")).Info("connector",
		slog.String("typePrefix", "cms"),
		slog.Group("auth", slog.String("apiKey", "k1"), slog.String("user", "bob")),
		slog.Any("config", map[string]any{
			"password": "p1",
			"nested":   map[string]any{"accessToken": "t1", "host": "example.com"},
		}),
	)

	out := buf.String()
	for _, secret := range []string{"s1", "k1", "p1", "t1"} {
		assert.NotContains(t, out, `"`+secret+`"`)
	}
	assert.Contains(t, out, `"typePrefix":"cms"`)
	assert.Contains(t, out, `"user":"bob"`)
	assert.Contains(t, out, `"host":"example.com"`)
}

func TestMiddleware_CorrelationID(t *testing.T) {
	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, rec.Header().Get(CorrelationIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "given")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "given", seen)

	assert.Empty(t, CorrelationIDFromContext(context.Background()))
}
