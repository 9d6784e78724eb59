package bedrock_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cardlens/internal/bedrock"
	"cardlens/internal/config"
	"cardlens/internal/domain"
)

func testClient(t *testing.T, endpoint string) *bedrock.Client {
	t.Helper()
	cfg := &config.BedrockConfig{
		Region:      "us-east-1",
		ModelID:     "anthropic.claude-3-5-sonnet-20240620-v1:0",
		AccessKey:   "test-access-key",
		SecretKey:   "test-secret-key",
		Endpoint:    endpoint,
		MaxTokens:   4096,
		Temperature: 0.0,
		TimeoutSecs: 30,
	}
	client, err := bedrock.NewClient(cfg)
	require.NoError(t, err)
	return client
}

func testImages() []domain.NormalizedImage {
	return []domain.NormalizedImage{
		{Data: []byte("front-image-bytes"), MediaType: "image/png"},
	}
}

func TestInvoke_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "/invoke")

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "bedrock-2023-05-31", body["anthropic_version"])
		assert.Equal(t, float64(4096), body["max_tokens"])
		assert.Equal(t, float64(0), body["temperature"])

		messages := body["messages"].([]any)
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]any)
		assert.Equal(t, "user", msg["role"])

		content := msg["content"].([]any)
		require.Len(t, content, 2)

		// Image block first, text prompt last
		imgBlock := content[0].(map[string]any)
		assert.Equal(t, "image", imgBlock["type"])
		source := imgBlock["source"].(map[string]any)
		assert.Equal(t, "base64", source["type"])
		assert.Equal(t, "image/png", source["media_type"])
		assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("front-image-bytes")), source["data"])

		textBlock := content[1].(map[string]any)
		assert.Equal(t, "text", textBlock["type"])
		assert.Equal(t, "extract the card", textBlock["text"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": `{"member_id": "ABC"}`}},
			"stop_reason": "end_turn",
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	text, err := client.Invoke(context.Background(), "extract the card", testImages())

	require.NoError(t, err)
	assert.Equal(t, `{"member_id": "ABC"}`, text)
}

func TestInvoke_MultipleImages(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		content := body["messages"].([]any)[0].(map[string]any)["content"].([]any)
		require.Len(t, content, 3, "two images plus the prompt")
		assert.Equal(t, "image", content[0].(map[string]any)["type"])
		assert.Equal(t, "image", content[1].(map[string]any)["type"])
		assert.Equal(t, "text", content[2].(map[string]any)["type"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{{"type": "text", "text": "ok"}},
		})
	}))
	defer server.Close()

	client := testClient(t, server.URL)
	images := []domain.NormalizedImage{
		{Data: []byte("page-1"), MediaType: "image/png", Page: 0},
		{Data: []byte("page-2"), MediaType: "image/jpeg", Page: 1},
	}

	_, err := client.Invoke(context.Background(), "extract", images)

	require.NoError(t, err)
}

func errorServer(status int, errorType string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if errorType != "" {
			w.Header().Set("X-Amzn-Errortype", errorType)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message": "simulated failure"}`))
	}))
}

func TestInvoke_ErrorMapping(t *testing.T) {
	cases := []struct {
		name      string
		status    int
		errorType string
		want      error
	}{
		{"throttled", http.StatusTooManyRequests, "ThrottlingException", domain.ErrThrottled},
		{"access denied", http.StatusForbidden, "AccessDeniedException", domain.ErrAccessDenied},
		{"bad credentials", http.StatusForbidden, "UnrecognizedClientException", domain.ErrAuthentication},
		{"model timeout", http.StatusRequestTimeout, "ModelTimeoutException", domain.ErrTimeout},
		{"service unavailable", http.StatusServiceUnavailable, "ServiceUnavailableException", domain.ErrTransientService},
		{"internal error", http.StatusInternalServerError, "InternalServerException", domain.ErrTransientService},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := errorServer(tc.status, tc.errorType)
			defer server.Close()

			client := testClient(t, server.URL)

			_, err := client.Invoke(context.Background(), "extract", testImages())

			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestInvoke_SingleAttempt(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message": "boom"}`))
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.Invoke(context.Background(), "extract", testImages())

	assert.Error(t, err)
	assert.Equal(t, 1, attempts, "no automatic retry on failure")
}

func TestInvoke_EmptyResponseContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"content": []any{}})
	}))
	defer server.Close()

	client := testClient(t, server.URL)

	_, err := client.Invoke(context.Background(), "extract", testImages())

	assert.ErrorIs(t, err, domain.ErrParse)
}
