package service

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"ai-loanengine-be/internal/constant"
	"ai-loanengine-be/internal/dto"
	"ai-loanengine-be/internal/repository/memory"
	"ai-loanengine-be/pkg/events"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools"
	"ai-loanengine-be/pkg/tools/docintel"
)

// DocumentAnalyzer extracts structured fields from document bytes.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, content []byte, categoryHint, filename string) (*store.DocumentFact, error)
}

// IDocumentService handles uploads: validate, analyze, merge facts.
type IDocumentService interface {
	Upload(ctx context.Context, request *dto.UploadDocumentRequest, filename string, content []byte) (*dto.UploadDocumentResponse, error)
	Types(ctx context.Context) *dto.DocumentTypesResponse
}

type documentService struct {
	sessionRepo *memory.SessionRepository
	analyzer    DocumentAnalyzer
	publisher   IAuditPublisherService

	maxDocuments int
	retryBackoff time.Duration
	logger       *log.Logger
}

func NewDocumentService(
	sessionRepo *memory.SessionRepository,
	analyzer DocumentAnalyzer,
	publisher IAuditPublisherService,
	maxDocuments int,
	retryBackoff time.Duration,
	logger *log.Logger,
) IDocumentService {
	if maxDocuments <= 0 {
		maxDocuments = constant.MaxDocumentsPerSession
	}
	return &documentService{
		sessionRepo:  sessionRepo,
		analyzer:     analyzer,
		publisher:    publisher,
		maxDocuments: maxDocuments,
		retryBackoff: retryBackoff,
		logger:       logger,
	}
}

// Upload validates the file, runs extraction outside the session lock
// (analysis can take seconds), then merges the result. A newer document
// of the same category supersedes the old one; facts merge last-write-wins
// with document provenance.
func (s *documentService) Upload(ctx context.Context, request *dto.UploadDocumentRequest, filename string, content []byte) (*dto.UploadDocumentResponse, error) {
	if !allowedExtension(filename) {
		return nil, tools.InvalidInput("docintel", fmt.Errorf("unsupported file type: %s", filepath.Ext(filename)))
	}
	if !docintel.ValidCategory(request.CategoryHint) {
		return nil, tools.InvalidInput("docintel", fmt.Errorf("unsupported category: %s", request.CategoryHint))
	}
	if _, found := s.sessionRepo.Get(request.SessionId); !found {
		return nil, memory.ErrSessionNotFound
	}

	fact, err := tools.WithRetry(ctx, "docintel", s.retryBackoff, func(ctx context.Context) (*store.DocumentFact, error) {
		return s.analyzer.Analyze(ctx, content, request.CategoryHint, filename)
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	derived := deriveFacts(fact, now)

	err = s.sessionRepo.Update(request.SessionId, now, func(session *store.Session) error {
		if _, exists := session.Documents[fact.Category]; !exists && len(session.Documents) >= s.maxDocuments {
			return tools.InvalidInput("docintel", fmt.Errorf("document limit reached (%d)", s.maxDocuments))
		}
		session.Documents[fact.Category] = *fact
		session.MergeFacts(derived)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Printf("[DOCUMENT] %s: %s analyzed as %s, %d fields, %d facts",
		request.SessionId, filename, fact.Category, len(fact.Fields), len(derived))
	s.publisher.Publish(events.TopicDocumentAnalyzed, events.NewDocumentAnalyzed(
		request.SessionId, fact.Category, filename, len(fact.Fields), now,
	))

	response := &dto.UploadDocumentResponse{
		SessionId:       request.SessionId,
		Category:        fact.Category,
		Filename:        filename,
		ExtractedFields: make(map[string]dto.ExtractedField, len(fact.Fields)),
		AnalyzedAt:      fact.AnalyzedAt,
	}
	for name, field := range fact.Fields {
		response.ExtractedFields[name] = dto.ExtractedField{
			Kind:       field.Kind,
			Text:       field.Text,
			Amount:     field.Amount,
			Confidence: field.Confidence,
		}
	}
	return response, nil
}

func (s *documentService) Types(ctx context.Context) *dto.DocumentTypesResponse {
	return &dto.DocumentTypesResponse{
		Categories: docintel.Categories(),
		Extensions: constant.AllowedDocumentExtensions,
	}
}

func allowedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range constant.AllowedDocumentExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// fieldToFact maps normalized vendor field names to canonical applicant
// facts. Extraction models differ per category, so several spellings
// land on the same fact.
var fieldToFact = map[string]string{
	"annualrevenue":   store.FactAnnualRevenue,
	"totalrevenue":    store.FactAnnualRevenue,
	"revenue":         store.FactAnnualRevenue,
	"netincome":       store.FactNetIncome,
	"netprofit":       store.FactNetIncome,
	"profitloss":      store.FactNetIncome,
	"closingbalance":  store.FactCashBalance,
	"endingbalance":   store.FactCashBalance,
	"cashbalance":     store.FactCashBalance,
	"totaldebt":       store.FactExistingDebt,
	"outstandingdebt": store.FactExistingDebt,
	"loanbalance":     store.FactExistingDebt,
}

// deriveFacts lifts amount fields into applicant facts with document
// provenance. Non-amount fields stay on the DocumentFact only.
func deriveFacts(fact *store.DocumentFact, now time.Time) []store.Fact {
	var facts []store.Fact
	for name, field := range fact.Fields {
		if field.Kind != "amount" {
			continue
		}
		canonical, ok := fieldToFact[normalizeFieldName(name)]
		if !ok {
			continue
		}
		facts = append(facts, store.Fact{
			Name:       canonical,
			Value:      field.Amount,
			Provenance: store.ProvenanceDocument,
			UpdatedAt:  now,
		})
	}
	return facts
}

func normalizeFieldName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	return b.String()
}
