package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"mime/multipart"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-loanengine-be/internal/bootstrap"
	"ai-loanengine-be/internal/config"
	"ai-loanengine-be/internal/controller"
	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/internal/server"
	"ai-loanengine-be/internal/service"
	"ai-loanengine-be/pkg/agent/compose"
	"ai-loanengine-be/pkg/agent/router"
	"ai-loanengine-be/pkg/eligibility"
	"ai-loanengine-be/pkg/events"
	"ai-loanengine-be/pkg/llm"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools/docintel"
	"ai-loanengine-be/pkg/tools/language"
)

// The API tests run against the real Fiber app with stubbed vendor
// adapters, so routing, validation, and the error middleware are all
// exercised end to end.

type stubPolicy struct{}

func (s *stubPolicy) Search(ctx context.Context, query string, topK int) ([]store.PolicyClause, error) {
	return []store.PolicyClause{
		{Section: "4.2", Content: "Applicants must have a minimum annual revenue of $250,000.", Score: 0.95},
		{Section: "4.3", Content: "A minimum credit score of 680 is required.", Score: 0.91},
	}, nil
}

type stubLanguage struct{}

func (s *stubLanguage) Analyze(ctx context.Context, text string) (*language.Analysis, error) {
	return &language.Analysis{Sentiment: language.SentimentNeutral, Confidence: 0.9}, nil
}

type stubLLM struct{}

func (s *stubLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return "", errors.New("llm offline")
}

func (s *stubLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return "", errors.New("llm offline")
}

type stubAnalyzer struct{}

func (s *stubAnalyzer) Analyze(ctx context.Context, content []byte, categoryHint, filename string) (*store.DocumentFact, error) {
	return &store.DocumentFact{
		Category: categoryHint,
		Filename: filename,
		Fields: map[string]store.FieldValue{
			"AnnualRevenue": {Kind: "amount", Amount: 668000, Confidence: 0.97},
		},
		AnalyzedAt: time.Now(),
	}, nil
}

type noopPublisher struct{}

func (p *noopPublisher) Publish(topic string, event events.Event) {}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) *server.Server {
	t.Helper()

	cfg := &config.Config{}
	cfg.App.Port = "3000"
	cfg.App.CorsAllowedOrigins = "http://localhost:5173"
	cfg.Tools.MaxUploadBytes = 10 * 1024 * 1024

	quiet := log.New(io.Discard, "", 0)
	repo := memory.NewSessionRepository(time.Hour, time.Hour)
	agentRouter := router.NewRouter(&stubPolicy{}, &stubLanguage{}, eligibility.DefaultThresholds(), quiet)
	composer := compose.NewComposer(&stubLLM{}, quiet)

	chatService := service.NewChatService(repo, agentRouter, composer, &noopPublisher{}, 30*time.Second, 50)
	documentService := service.NewDocumentService(repo, &stubAnalyzer{}, &noopPublisher{}, 20, time.Millisecond, quiet)

	container := &bootstrap.Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
	}
	return server.New(cfg, container)
}

func postJSON(t *testing.T, srv *server.Server, path string, payload interface{}) (*envelope, int) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return &env, resp.StatusCode
}

func TestChatAPIFlow(t *testing.T) {
	srv := newTestApp(t)

	env, status := postJSON(t, srv, "/api/chat/v1/session", nil)
	require.Equal(t, 200, status)
	require.True(t, env.Success)

	var session struct {
		Id string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Id)

	env, status = postJSON(t, srv, "/api/chat/v1/message", map[string]string{
		"session_id": session.Id,
		"text":       "Hi, what are the requirements for a business loan?",
	})
	require.Equal(t, 200, status)
	require.True(t, env.Success)

	var message struct {
		ReplyText string `json:"reply_text"`
		Phase     string `json:"phase"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &message))
	assert.Equal(t, store.PhaseAnalyzing, message.Phase)
	assert.Contains(t, message.ReplyText, "$250,000")

	req := httptest.NewRequest("GET", "/api/chat/v1/"+session.Id+"/history", nil)
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	var history envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	var turns struct {
		Turns []json.RawMessage `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(history.Data, &turns))
	assert.Len(t, turns.Turns, 2)
}

func TestChatAPIValidation(t *testing.T) {
	srv := newTestApp(t)

	// Missing text field.
	env, status := postJSON(t, srv, "/api/chat/v1/message", map[string]string{
		"session_id": "some-id",
	})
	assert.Equal(t, 400, status)
	assert.False(t, env.Success)

	// Unknown session id: the turn proceeds under a fresh session.
	env, status = postJSON(t, srv, "/api/chat/v1/message", map[string]string{
		"session_id": "does-not-exist",
		"text":       "hello",
	})
	assert.Equal(t, 200, status)
	require.True(t, env.Success)

	var message struct {
		SessionId string `json:"session_id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &message))
	assert.NotEqual(t, "does-not-exist", message.SessionId)

	// History stays strict about unknown ids.
	req := httptest.NewRequest("GET", "/api/chat/v1/does-not-exist/history", nil)
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDocumentAPIUpload(t *testing.T) {
	srv := newTestApp(t)

	env, status := postJSON(t, srv, "/api/chat/v1/session", nil)
	require.Equal(t, 200, status)
	var session struct {
		Id string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("session_id", session.Id))
	require.NoError(t, writer.WriteField("category_hint", docintel.CategoryFinancialStatement))
	part, err := writer.CreateFormFile("file", "q2_financials.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.7 test"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest("POST", "/api/document/v1/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)

	var uploadEnv envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&uploadEnv))
	require.True(t, uploadEnv.Success)

	var upload struct {
		Category        string                     `json:"category"`
		ExtractedFields map[string]json.RawMessage `json:"extracted_fields"`
	}
	require.NoError(t, json.Unmarshal(uploadEnv.Data, &upload))
	assert.Equal(t, docintel.CategoryFinancialStatement, upload.Category)
	assert.Len(t, upload.ExtractedFields, 1)

	// Rejected extension surfaces as 422 through the error middleware.
	body.Reset()
	writer = multipart.NewWriter(&body)
	require.NoError(t, writer.WriteField("session_id", session.Id))
	require.NoError(t, writer.WriteField("category_hint", docintel.CategoryBankStatement))
	part, err = writer.CreateFormFile("file", "notes.docx")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a pdf"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req = httptest.NewRequest("POST", "/api/document/v1/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err = srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 422, resp.StatusCode)
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 200, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "healthy"))
}
