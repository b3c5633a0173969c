package service

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-loanengine-be/internal/dto"
	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/pkg/agent/compose"
	"ai-loanengine-be/pkg/agent/router"
	"ai-loanengine-be/pkg/eligibility"
	"ai-loanengine-be/pkg/events"
	"ai-loanengine-be/pkg/llm"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools/language"
)

type stubPolicy struct {
	clauses []store.PolicyClause
}

func (s *stubPolicy) Search(ctx context.Context, query string, topK int) ([]store.PolicyClause, error) {
	return s.clauses, nil
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

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	types  []string
}

func (p *recordingPublisher) Publish(topic string, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.types = append(p.types, event.EventType())
}

func newTestChatService(t *testing.T) (IChatService, *recordingPublisher) {
	t.Helper()

	clauses := []store.PolicyClause{
		{Section: "4.2", Content: "Applicants must have a minimum annual revenue of $250,000.", Score: 0.95},
		{Section: "4.3", Content: "A minimum credit score of 680 is required.", Score: 0.91},
	}
	repo := memory.NewSessionRepository(time.Hour, time.Hour)
	quiet := log.New(io.Discard, "", 0)
	agentRouter := router.NewRouter(&stubPolicy{clauses: clauses}, &stubLanguage{}, eligibility.DefaultThresholds(), quiet)
	composer := compose.NewComposer(&stubLLM{}, quiet)
	publisher := &recordingPublisher{}

	return NewChatService(repo, agentRouter, composer, publisher, 30*time.Second, 50), publisher
}

func TestChatServiceFullConversation(t *testing.T) {
	svc, publisher := newTestChatService(t)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, created.Id)

	// Greeting turn: no tools, no decision.
	reply, err := svc.SendMessage(ctx, &dto.SendMessageRequest{
		SessionId: created.Id,
		Text:      "Hello there",
	})
	require.NoError(t, err)
	assert.Equal(t, store.PhaseGreeting, reply.Phase)
	assert.Empty(t, reply.ToolCalls)
	assert.Nil(t, reply.Decision)
	assert.NotEmpty(t, reply.ReplyText)

	// Provide enough facts for a clean approval.
	statements := []string{
		"Our annual revenue is $1,550,000 and net income is $183,750",
		"My credit score is 762 and we have been in business for 42 months",
		"We have $150,000 cash on hand and want to borrow $100,000",
	}
	for _, text := range statements {
		reply, err = svc.SendMessage(ctx, &dto.SendMessageRequest{SessionId: created.Id, Text: text})
		require.NoError(t, err)
		assert.Equal(t, store.PhaseGathering, reply.Phase)
	}

	// Decision turn.
	reply, err = svc.SendMessage(ctx, &dto.SendMessageRequest{
		SessionId: created.Id,
		Text:      "Am I eligible for the loan?",
	})
	require.NoError(t, err)
	require.NotNil(t, reply.Decision)
	assert.Equal(t, string(eligibility.OutcomePreApproved), reply.Decision.Outcome)
	assert.Contains(t, reply.ReplyText, "PRE_APPROVED")
	// The deciding phase never persists past its turn.
	assert.Equal(t, store.PhaseGathering, reply.Phase)

	history, err := svc.GetHistory(ctx, created.Id)
	require.NoError(t, err)
	assert.Len(t, history.Turns, 10) // 5 user + 5 agent
	assert.Equal(t, store.RoleUser, history.Turns[0].Role)
	assert.Equal(t, store.RoleAgent, history.Turns[1].Role)

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	assert.Len(t, publisher.topics, 5)
	for _, topic := range publisher.topics {
		assert.Equal(t, events.TopicTurnCompleted, topic)
	}
}

func TestChatServiceAutoCreatesSession(t *testing.T) {
	svc, _ := newTestChatService(t)

	// No session id: a fresh session is started and returned.
	reply, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		Text: "hello",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, reply.SessionId)

	// An expired or unknown id behaves the same way under a new id.
	replaced, err := svc.SendMessage(context.Background(), &dto.SendMessageRequest{
		SessionId: "expired-session",
		Text:      "hello",
	})
	require.NoError(t, err)
	assert.NotEqual(t, "expired-session", replaced.SessionId)

	// History and deletion stay strict: unknown ids are an error.
	_, err = svc.GetHistory(context.Background(), "expired-session")
	assert.ErrorIs(t, err, memory.ErrSessionNotFound)
}

func TestChatServiceHistoryTrimmed(t *testing.T) {
	repo := memory.NewSessionRepository(time.Hour, time.Hour)
	quiet := log.New(io.Discard, "", 0)
	agentRouter := router.NewRouter(&stubPolicy{}, &stubLanguage{}, eligibility.DefaultThresholds(), quiet)
	composer := compose.NewComposer(&stubLLM{}, quiet)
	svc := NewChatService(repo, agentRouter, composer, &recordingPublisher{}, 30*time.Second, 4)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = svc.SendMessage(ctx, &dto.SendMessageRequest{SessionId: created.Id, Text: "hello"})
		require.NoError(t, err)
	}

	history, err := svc.GetHistory(ctx, created.Id)
	require.NoError(t, err)
	assert.Len(t, history.Turns, 4)
}

func TestChatServiceDeleteSession(t *testing.T) {
	svc, _ := newTestChatService(t)
	ctx := context.Background()

	created, err := svc.CreateSession(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteSession(ctx, created.Id))
	assert.ErrorIs(t, svc.DeleteSession(ctx, created.Id), memory.ErrSessionNotFound)
}
