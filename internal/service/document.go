package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/telemetry"
)

// IndexJobRepository defines the repository interface for index job persistence
type IndexJobRepository interface {
	Create(ctx context.Context, job *domain.IndexJob) error
	GetByID(ctx context.Context, id string) (*domain.IndexJob, error)
}

// DocumentIndexer indexes and removes documents.
type DocumentIndexer interface {
	IndexDocument(ctx context.Context, documentID, text string) (*domain.Document, error)
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
	RemoveDocument(ctx context.Context, documentID string) error
}

// IngestInput is a document submitted for indexing. ID is generated when empty.
type IngestInput struct {
	ID    string
	Text  string
	Async bool
}

// IngestResult carries the indexed document, or the queued job when the
// ingest was asynchronous.
type IngestResult struct {
	DocumentID string
	Document   *domain.Document
	Job        *domain.IndexJob
}

// DocumentService is the entry point for document ingestion. Synchronous
// ingests index inline; asynchronous ones are queued for the index worker.
type DocumentService struct {
	indexer DocumentIndexer
	jobRepo IndexJobRepository
	uuidGen UUIDGenerator
}

// NewDocumentService creates a new DocumentService instance
func NewDocumentService(indexer DocumentIndexer, jobRepo IndexJobRepository) *DocumentService {
	return NewDocumentServiceWithUUIDGen(indexer, jobRepo, &DefaultUUIDGenerator{})
}

// NewDocumentServiceWithUUIDGen creates a new DocumentService with custom UUID generator (for testing)
func NewDocumentServiceWithUUIDGen(indexer DocumentIndexer, jobRepo IndexJobRepository, uuidGen UUIDGenerator) *DocumentService {
	return &DocumentService{
		indexer: indexer,
		jobRepo: jobRepo,
		uuidGen: uuidGen,
	}
}

func (s *DocumentService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	documentID := strings.TrimSpace(input.ID)
	if documentID == "" {
		documentID = s.uuidGen.NewString()
	}

	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Ingest", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	if err := domain.ValidateDocumentInput(documentID, input.Text); err != nil {
		return nil, err
	}

	if !input.Async || s.jobRepo == nil {
		doc, err := s.indexer.IndexDocument(ctx, documentID, input.Text)
		if err != nil {
			return nil, err
		}
		return &IngestResult{DocumentID: documentID, Document: doc}, nil
	}

	job := domain.NewIndexJob(s.uuidGen.NewString(), documentID, input.Text, time.Now().UTC())
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}
	telemetry.AddBreadcrumb(ctx, "index", "queued index job "+job.ID)

	return &IngestResult{DocumentID: documentID, Job: job}, nil
}

// GetDocument returns the indexed document or domain.ErrDocumentNotIndexed.
func (s *DocumentService) GetDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.indexer.GetDocument(ctx, documentID)
}

// DeleteDocument removes a document's index. Unknown IDs are not an error.
func (s *DocumentService) DeleteDocument(ctx context.Context, documentID string) error {
	return s.indexer.RemoveDocument(ctx, documentID)
}

// GetJob returns a queued index job or domain.ErrJobNotFound.
func (s *DocumentService) GetJob(ctx context.Context, jobID string) (*domain.IndexJob, error) {
	if s.jobRepo == nil {
		return nil, domain.ErrJobNotFound
	}
	return s.jobRepo.GetByID(ctx, jobID)
}
