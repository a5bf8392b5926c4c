package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vm-affekt/ytmux/internal/app"
	"github.com/vm-affekt/ytmux/internal/logging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const testKey = "s3cret"

type fakeOrchestrator struct {
	options []app.StreamDescriptor
	result  app.DownloadResult
	err     error
	panics  bool

	gotURL string
	gotReq app.DownloadRequest
}

func (f *fakeOrchestrator) Info(_ context.Context, sourceURL string) ([]app.StreamDescriptor, error) {
	f.gotURL = sourceURL
	if f.panics {
		panic("catalog exploded")
	}
	return f.options, f.err
}

func (f *fakeOrchestrator) Download(_ context.Context, req app.DownloadRequest) (app.DownloadResult, error) {
	f.gotReq = req
	return f.result, f.err
}

func newTestRouter(t *testing.T, orch Orchestrator, limiter *rate.Limiter) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logging.SetLogger(zap.NewExample())
	outDir := t.TempDir()
	srv := New(orch, Options{
		APIKey:    testKey,
		BaseURL:   "http://10.0.0.5:5000",
		OutputDir: outDir,
		Limiter:   limiter,
	})
	return srv.Router(), outDir
}

func do(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestServer_authorization(t *testing.T) {
	tests := []struct {
		name       string
		auth       string
		wantStatus int
	}{
		{
			name:       "should_reject_missing_header",
			auth:       "",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "should_reject_wrong_key",
			auth:       "Bearer nope",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "should_reject_key_without_scheme",
			auth:       testKey,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "should_accept_bearer_key",
			auth:       "Bearer " + testKey,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, &fakeOrchestrator{}, nil)
			w := do(r, http.MethodPost, "/info", tt.auth, `{"url":"https://youtu.be/GQtVIUdr4sk"}`)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "Unauthorized", decode(t, w)["error"])
			}
		})
	}
}

func TestServer_info(t *testing.T) {
	orch := &fakeOrchestrator{options: []app.StreamDescriptor{
		{Resolution: "1080p", FrameRate: 30, MimeType: "video/mp4", VideoCodec: "avc1.640028", StreamID: "137"},
	}}
	r, _ := newTestRouter(t, orch, nil)

	w := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{"url":"https://youtu.be/GQtVIUdr4sk"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"resolution":"1080p","fps":30,"mime_type":"video/mp4","video_codec":"avc1.640028","itag":"137"}]`, w.Body.String())
	assert.Equal(t, "https://youtu.be/GQtVIUdr4sk", orch.gotURL)
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))
}

func TestServer_info_errors(t *testing.T) {
	t.Run("should_return_400_without_url", func(t *testing.T) {
		r, _ := newTestRouter(t, &fakeOrchestrator{}, nil)
		w := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "No URL provided", decode(t, w)["error"])
	})
	t.Run("should_return_500_with_message", func(t *testing.T) {
		orch := &fakeOrchestrator{err: app.NewError(app.KindSourceUnavailable, "Failed to get video by link")}
		r, _ := newTestRouter(t, orch, nil)
		w := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{"url":"https://youtu.be/x"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "Failed to get video by link", decode(t, w)["error"])
	})
	t.Run("should_recover_from_panic", func(t *testing.T) {
		r, _ := newTestRouter(t, &fakeOrchestrator{panics: true}, nil)
		w := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{"url":"https://youtu.be/x"}`)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, decode(t, w)["error"], "Request id")
	})
}

func TestServer_download(t *testing.T) {
	orch := &fakeOrchestrator{result: app.DownloadResult{Name: "My clip_20240309_070501_0a1b2c3d_NSD.mp4"}}
	r, _ := newTestRouter(t, orch, nil)

	w := do(r, http.MethodPost, "/download", "Bearer "+testKey,
		`{"data":{"url":"https://youtu.be/GQtVIUdr4sk","resolution":"720p","is_audio":false}}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "http://10.0.0.5:5000/videos/My%20clip_20240309_070501_0a1b2c3d_NSD.mp4", decode(t, w)["output_path"])
	assert.Equal(t, app.DownloadRequest{SourceURL: "https://youtu.be/GQtVIUdr4sk", Resolution: "720p"}, orch.gotReq)
}

func TestServer_download_errors(t *testing.T) {
	tests := []struct {
		name       string
		orch       *fakeOrchestrator
		body       string
		wantStatus int
		wantError  string
	}{
		{
			name:       "should_return_400_without_data",
			orch:       &fakeOrchestrator{},
			body:       `{"url":"https://youtu.be/x"}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "No URL provided",
		},
		{
			name:       "should_return_400_on_malformed_json",
			orch:       &fakeOrchestrator{},
			body:       `{"data":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "No URL provided",
		},
		{
			name:       "should_return_500_with_pipeline_message",
			orch:       &fakeOrchestrator{err: app.NewError(app.KindNoAudioStream, "No audio stream found")},
			body:       `{"data":{"url":"https://youtu.be/x","is_audio":true}}`,
			wantStatus: http.StatusInternalServerError,
			wantError:  "No audio stream found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.orch, nil)
			w := do(r, http.MethodPost, "/download", "Bearer "+testKey, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantError, decode(t, w)["error"])
		})
	}
}

func TestServer_videos(t *testing.T) {
	r, outDir := newTestRouter(t, &fakeOrchestrator{}, nil)
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "My clip_NSD.mp4"), []byte("MP4DATA"), 0644))

	w := do(r, http.MethodGet, "/videos/My%20clip_NSD.mp4", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MP4DATA", w.Body.String())

	w = do(r, http.MethodGet, "/videos/missing.mp4", "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_rateLimit(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{}, rate.NewLimiter(rate.Limit(0.001), 1))

	for i := 0; i < 3; i++ {
		anon := do(r, http.MethodPost, "/info", "Bearer wrong", `{"url":"https://youtu.be/x"}`)
		assert.Equal(t, http.StatusUnauthorized, anon.Code)
	}
	first := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{"url":"https://youtu.be/x"}`)
	second := do(r, http.MethodPost, "/info", "Bearer "+testKey, `{"url":"https://youtu.be/x"}`)

	assert.Equal(t, http.StatusOK, first.Code, "unauthorized requests must not spend the limiter budget")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestServer_healthz(t *testing.T) {
	r, _ := newTestRouter(t, &fakeOrchestrator{}, rate.NewLimiter(rate.Limit(0.001), 0))
	w := do(r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestResolveBaseURL(t *testing.T) {
	assert.Equal(t, "https://media.example.test", ResolveBaseURL("https://media.example.test", ":5000"))

	got := ResolveBaseURL("", ":8080")
	assert.True(t, strings.HasPrefix(got, "http://"), got)
	assert.True(t, strings.HasSuffix(got, ":8080"), got)

	assert.True(t, strings.HasSuffix(ResolveBaseURL("", "bogus"), ":5000"))
}
