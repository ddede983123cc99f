package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/AliZeynalov/keybridge/internal/dispatch"
	"github.com/AliZeynalov/keybridge/internal/models"
	"github.com/AliZeynalov/keybridge/internal/provider"
	"github.com/AliZeynalov/keybridge/internal/provider/providermock"
	"github.com/AliZeynalov/keybridge/internal/relay"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAdapter(ctrl *gomock.Controller, id models.ProviderID, name string) *providermock.MockAdapter {
	m := providermock.NewMockAdapter(ctrl)
	m.EXPECT().ID().Return(id).AnyTimes()
	m.EXPECT().DisplayName().Return(name).AnyTimes()
	return m
}

func newTestRouter(adapters ...provider.Adapter) *gin.Engine {
	registry := provider.NewRegistry(adapters...)
	h := NewHandler(dispatch.New(registry), registry, time.Second)
	return NewRouter(h, DefaultMaxBodyBytes)
}

func post(r http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChat_SingleProvider(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	openai.EXPECT().ResolveModel(gomock.Any(), "sk-test").Return("gpt-4o")
	openai.EXPECT().
		Call(gomock.Any(), []models.Turn{{Role: models.RoleUser, Content: "2+2?"}}, "sk-test", "gpt-4o", gomock.Len(0)).
		Return(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Text: "4", Ms: 12})

	w := post(newTestRouter(openai), "/api/chat",
		`{"messages":[{"role":"user","content":"2+2?"}],"providers":{"openai":{"apiKey":"sk-test"}}}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"results":[{"ok":true,"provider":"openai","model":"gpt-4o","text":"4","ms":12}]}`, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Header().Get("X-Request-ID"), "req_"))
}

func TestChat_NoProvidersConfigured(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	r := newTestRouter(openai)

	for name, body := range map[string]string{
		"empty map":   `{"messages":[{"role":"user","content":"hi"}],"providers":{}}`,
		"blank key":   `{"messages":[{"role":"user","content":"hi"}],"providers":{"openai":{"apiKey":"  "}}}`,
		"unknown id":  `{"messages":[{"role":"user","content":"hi"}],"providers":{"mistral":{"apiKey":"k"}}}`,
		"empty body":  ``,
		"no messages": `{"providers":{}}`,
	} {
		t.Run(name, func(t *testing.T) {
			w := post(r, "/api/chat", body, nil)
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.JSONEq(t, `{"error":"No providers configured. Please add API keys in Settings."}`, w.Body.String())
		})
	}
}

func TestChat_MalformedBody(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := post(newTestRouter(newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")), "/api/chat", `{"messages":`, nil)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestChat_MixedOutcomes(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	anthropic := newAdapter(ctrl, models.ProviderAnthropic, "Anthropic")
	xai := newAdapter(ctrl, models.ProviderXAI, "xAI")

	openai.EXPECT().ResolveModel(gomock.Any(), "a").Return("gpt-4o")
	openai.EXPECT().Call(gomock.Any(), gomock.Any(), "a", "gpt-4o", gomock.Any()).
		Return(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Text: "hello"})
	anthropic.EXPECT().ResolveModel(gomock.Any(), "b").Return("claude-sonnet-4-20250514")
	anthropic.EXPECT().Call(gomock.Any(), gomock.Any(), "b", "claude-sonnet-4-20250514", gomock.Any()).
		Return(models.Result{OK: false, Provider: models.ProviderAnthropic, Model: "claude-sonnet-4-20250514", Error: "invalid x-api-key"})
	xai.EXPECT().ResolveModel(gomock.Any(), "c").Return("grok-3")
	xai.EXPECT().Call(gomock.Any(), gomock.Any(), "c", "grok-3", gomock.Any()).
		Return(models.Result{OK: true, Provider: models.ProviderXAI, Model: "grok-3", Text: "hey"})

	w := post(newTestRouter(openai, anthropic, xai), "/api/chat",
		`{"messages":[{"role":"user","content":"hi"}],"providers":{"openai":{"apiKey":"a"},"anthropic":{"apiKey":"b"},"xai":{"apiKey":"c"}}}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 3)

	got := map[models.ProviderID]models.Result{}
	for _, r := range resp.Results {
		got[r.Provider] = r
	}
	assert.True(t, got[models.ProviderOpenAI].OK)
	assert.True(t, got[models.ProviderXAI].OK)
	assert.False(t, got[models.ProviderAnthropic].OK)
	assert.Equal(t, "invalid x-api-key", got[models.ProviderAnthropic].Error)
}

func TestChat_NormalizesMessagesAndFiltersAttachments(t *testing.T) {
	ctrl := gomock.NewController(t)
	google := newAdapter(ctrl, models.ProviderGoogle, "Google")
	google.EXPECT().
		Call(gomock.Any(),
			[]models.Turn{
				{Role: models.RoleUser, Content: "look"},
				{Role: models.RoleUser, Content: "42"},
			},
			"g", "gemini-2.5-pro",
			[]models.Attachment{{MIME: "image/png", Data: "AAAA"}, {MIME: "application/pdf", Data: "BBBB"}}).
		Return(models.Result{OK: true, Provider: models.ProviderGoogle, Model: "gemini-2.5-pro", Text: "a cat"})

	w := post(newTestRouter(google), "/api/chat", `{
		"messages":[{"role":"wizard","content":"look"}, 42],
		"attachments":[{"mime":"image/png","data":"AAAA"},{"mime":"image/png","data":""},{"mime":"application/pdf","data":"BBBB"},"junk"],
		"providers":{"google":{"apiKey":"g","model":"gemini-2.5-pro"}}
	}`, nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"text":"a cat"`)
}

func TestChat_NonArrayAttachmentsAreIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	openai.EXPECT().Call(gomock.Any(), gomock.Any(), "k", "gpt-4o", gomock.Len(0)).
		Return(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Text: "ok"}).Times(4)
	r := newTestRouter(openai)

	for name, attachments := range map[string]string{
		"object": `{}`,
		"string": `"image/png"`,
		"number": `7`,
		"null":   `null`,
	} {
		t.Run(name, func(t *testing.T) {
			w := post(r, "/api/chat", `{"messages":[{"role":"user","content":"hi"}],"attachments":`+attachments+
				`,"providers":{"openai":{"apiKey":"k","model":"gpt-4o"}}}`, nil)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"text":"ok"`)
		})
	}
}

func TestChat_Streaming(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	anthropic := newAdapter(ctrl, models.ProviderAnthropic, "Anthropic")

	// one round per subtest
	openai.EXPECT().ResolveModel(gomock.Any(), "a").Return("gpt-4o").Times(3)
	openai.EXPECT().Call(gomock.Any(), gomock.Any(), "a", "gpt-4o", gomock.Any()).
		Return(models.Result{OK: true, Provider: models.ProviderOpenAI, Model: "gpt-4o", Text: "hello"}).Times(3)
	anthropic.EXPECT().ResolveModel(gomock.Any(), "b").Return("").Times(3)

	r := newTestRouter(openai, anthropic)
	body := `{"messages":[{"role":"user","content":"hi"}],"providers":{"openai":{"apiKey":"a"},"anthropic":{"apiKey":"b"}}}`

	for name, tc := range map[string]struct {
		path   string
		body   string
		header http.Header
	}{
		"query":  {path: "/api/chat?stream=1", body: body},
		"accept": {path: "/api/chat", body: body, header: http.Header{"Accept": {relay.ContentType}}},
		"field":  {path: "/api/chat", body: strings.Replace(body, `{"messages"`, `{"stream":true,"messages"`, 1)},
	} {
		t.Run(name, func(t *testing.T) {
			w := post(r, tc.path, tc.body, tc.header)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, relay.ContentType, w.Header().Get("Content-Type"))

			collector := relay.NewCollector(models.ProviderOpenAI, models.ProviderAnthropic)
			reader := relay.NewReader(w.Body)
			frames := 0
			for {
				f, err := reader.Next()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				assert.Equal(t, models.FrameTypeResult, f.Type)
				collector.Add(f.Result)
				frames++
			}

			// openai: partial then terminal; anthropic: terminal only
			assert.Equal(t, 3, frames)
			assert.Empty(t, collector.Pending())

			got, ok := collector.Latest(models.ProviderAnthropic)
			require.True(t, ok)
			assert.False(t, got.OK)
			assert.Equal(t, "Unable to resolve Anthropic model", got.Error)

			got, ok = collector.Latest(models.ProviderOpenAI)
			require.True(t, ok)
			assert.Equal(t, "hello", got.Text)
		})
	}
}

func TestChat_StreamingNoProvidersIsPlainError(t *testing.T) {
	ctrl := gomock.NewController(t)
	w := post(newTestRouter(newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")), "/api/chat?stream=1", `{"providers":{}}`, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, relay.ContentType, w.Header().Get("Content-Type"))
}

func TestValidate(t *testing.T) {
	ctrl := gomock.NewController(t)
	openai := newAdapter(ctrl, models.ProviderOpenAI, "OpenAI")
	r := newTestRouter(openai)

	t.Run("valid key", func(t *testing.T) {
		openai.EXPECT().ValidateKey(gomock.Any(), "good").Return("gpt-4o", nil)
		w := post(r, "/api/validate", `{"provider":"openai","apiKey":"good"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":true,"provider":"openai","model":"gpt-4o"}`, w.Body.String())
	})

	t.Run("rejected key", func(t *testing.T) {
		openai.EXPECT().ValidateKey(gomock.Any(), "bad").Return("", errors.New("Incorrect API key provided"))
		w := post(r, "/api/validate", `{"provider":"openai","apiKey":"bad"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"ok":false,"provider":"openai","error":"Incorrect API key provided"}`, w.Body.String())
	})

	t.Run("unknown provider", func(t *testing.T) {
		w := post(r, "/api/validate", `{"provider":"mistral","apiKey":"k"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		w := post(r, "/api/validate", `{"provider":"openai"}`, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("bounded by timeout", func(t *testing.T) {
		openai.EXPECT().ValidateKey(gomock.Any(), "slow").DoAndReturn(func(ctx context.Context, _ string) (string, error) {
			_, ok := ctx.Deadline()
			assert.True(t, ok)
			return "", context.DeadlineExceeded
		})
		w := post(r, "/api/validate", `{"provider":"openai","apiKey":"slow"}`, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok":false`)
	})
}

func TestHealth(t *testing.T) {
	w := httptest.NewRecorder()
	newTestRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
}

func TestBodyLimit(t *testing.T) {
	registry := provider.NewRegistry()
	r := NewRouter(NewHandler(dispatch.New(registry), registry, time.Second), 16)

	w := post(r, "/api/chat", `{"messages":[{"role":"user","content":"far too long for the limit"}]}`, nil)
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.JSONEq(t, `{"error":"Request body exceeds 16 bytes"}`, w.Body.String())
}
