package service

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"ai-loanengine-be/internal/dto"
	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/pkg/agent/compose"
	"ai-loanengine-be/pkg/agent/phase"
	"ai-loanengine-be/pkg/agent/router"
	"ai-loanengine-be/pkg/events"
	"ai-loanengine-be/pkg/store"
)

// IChatService defines the conversational loan-prequalification service.
type IChatService interface {
	CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error)
	SendMessage(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error)
	GetHistory(ctx context.Context, sessionID string) (*dto.GetHistoryResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

type chatService struct {
	sessionRepo *memory.SessionRepository
	agentRouter *router.Router
	composer    *compose.Composer
	publisher   IAuditPublisherService

	turnTimeout  time.Duration
	historyTurns int
	agentLogger  *log.Logger
}

func NewChatService(
	sessionRepo *memory.SessionRepository,
	agentRouter *router.Router,
	composer *compose.Composer,
	publisher IAuditPublisherService,
	turnTimeout time.Duration,
	historyTurns int,
) IChatService {
	return &chatService{
		sessionRepo:  sessionRepo,
		agentRouter:  agentRouter,
		composer:     composer,
		publisher:    publisher,
		turnTimeout:  turnTimeout,
		historyTurns: historyTurns,
		agentLogger:  initAgentLogger(),
	}
}

func (s *chatService) CreateSession(ctx context.Context) (*dto.CreateSessionResponse, error) {
	session := s.sessionRepo.Create(time.Now())
	s.agentLogger.Printf("[SESSION] Created %s", session.ID)
	return &dto.CreateSessionResponse{Id: session.ID}, nil
}

// SendMessage runs one full turn: classify, route tools, evaluate if
// asked, compose the reply, and append both turns. All session mutation
// happens inside Update, so turns for the same session never interleave.
func (s *chatService) SendMessage(ctx context.Context, request *dto.SendMessageRequest) (*dto.SendMessageResponse, error) {
	now := time.Now()
	ctx, cancel := context.WithTimeout(ctx, s.turnTimeout)
	defer cancel()

	// An omitted or expired session id starts a fresh conversation; the
	// caller picks up the returned id.
	sessionID := s.sessionRepo.Ensure(request.SessionId, now).ID

	var response *dto.SendMessageResponse
	var routed *router.Result

	err := s.sessionRepo.Update(sessionID, now, func(session *store.Session) error {
		result := s.agentRouter.Route(ctx, session, request.Text, now)
		routed = result

		reply := s.composer.Compose(ctx, session, result)

		userTurn := store.Turn{
			ID:        uuid.NewString(),
			Role:      store.RoleUser,
			Content:   request.Text,
			CreatedAt: now,
			ToolCalls: result.ToolCalls,
		}
		agentTurn := store.Turn{
			ID:        uuid.NewString(),
			Role:      store.RoleAgent,
			Content:   reply,
			CreatedAt: time.Now(),
		}
		session.Turns = append(session.Turns, userTurn, agentTurn)
		session.Phase = phase.After(result.Phase)

		response = &dto.SendMessageResponse{
			SessionId: session.ID,
			ReplyText: reply,
			Phase:     session.Phase,
			ToolCalls: result.ToolCalls,
		}
		if result.Decision != nil {
			response.Decision = &dto.DecisionDTO{
				Outcome:      string(result.Decision.Outcome),
				Violated:     result.Decision.Violated,
				Marginal:     result.Decision.Marginal,
				MissingFacts: result.Decision.MissingFacts,
				Remediation:  result.Decision.Remediation,
				UsedDefaults: result.Decision.UsedDefaults,
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	decisionOutcome := ""
	if routed.Decision != nil {
		decisionOutcome = string(routed.Decision.Outcome)
	}
	s.publisher.Publish(events.TopicTurnCompleted, events.NewTurnCompleted(
		sessionID,
		routed.Phase,
		string(routed.Classification.Intent),
		decisionOutcome,
		len(routed.ToolCalls),
		now,
	))

	return response, nil
}

func (s *chatService) GetHistory(ctx context.Context, sessionID string) (*dto.GetHistoryResponse, error) {
	session, found := s.sessionRepo.Get(sessionID)
	if !found {
		return nil, memory.ErrSessionNotFound
	}

	turns := session.Turns
	if s.historyTurns > 0 && len(turns) > s.historyTurns {
		turns = turns[len(turns)-s.historyTurns:]
	}

	response := &dto.GetHistoryResponse{
		SessionId: session.ID,
		Phase:     session.Phase,
		Turns:     make([]dto.HistoryTurnDTO, 0, len(turns)),
	}
	for _, turn := range turns {
		response.Turns = append(response.Turns, dto.HistoryTurnDTO{
			Id:        turn.ID,
			Role:      turn.Role,
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt,
			ToolCalls: turn.ToolCalls,
		})
	}
	return response, nil
}

func (s *chatService) DeleteSession(ctx context.Context, sessionID string) error {
	if _, found := s.sessionRepo.Get(sessionID); !found {
		return memory.ErrSessionNotFound
	}
	s.sessionRepo.Delete(sessionID)
	s.agentLogger.Printf("[SESSION] Deleted %s", sessionID)
	return nil
}

// initAgentLogger writes the agent pipeline trace to its own file so the
// turn-by-turn tool activity stays out of the main app log.
func initAgentLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "agent.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
		return log.Default()
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Printf("Failed to open agent log file: %v", err)
		return log.Default()
	}
	return log.New(file, "", log.LstdFlags)
}
