package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/AlessandroBorges/jsimplerag-go/internal/convert"
	"github.com/AlessandroBorges/jsimplerag-go/internal/model"
	"github.com/AlessandroBorges/jsimplerag-go/internal/storage/postgres"
)

// ErrFileTooLarge is returned by UploadFile when fileBytes exceeds
// maxUploadBytes (50 MiB).
var ErrFileTooLarge = errors.New("ingestion: file exceeds maximum upload size")

const maxUploadBytes = 50 * 1024 * 1024

// UploadTextRequest is the uploadText endpoint's input.
type UploadTextRequest struct {
	LibraryID   int64
	Title       string
	Markdown    string
	Metadata    map[string]any
	ContentType model.ContentType
}

// UploadURLRequest is the uploadUrl endpoint's input.
type UploadURLRequest struct {
	LibraryID int64
	URL       string
	Title     string
	Metadata  map[string]any
}

// UploadFileRequest is the uploadFile endpoint's input.
type UploadFileRequest struct {
	LibraryID int64
	FileBytes []byte
	Filename  string
	Title     string
	Metadata  map[string]any
}

// Option configures a Service.
type Option func(*Service)

// WithHTTPClient overrides the client used to fetch uploadUrl sources.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Service) { s.httpClient = c }
}

// WithOriginalStore enables original-bytes retention for uploadFile, keyed
// by the created Documento's id.
func WithOriginalStore(o *OriginalStore) Option {
	return func(s *Service) { s.originals = o }
}

// Service implements the transport-agnostic ingestion API: the three
// upload endpoints plus process/status, composed from the duplicate
// detector, documento repository, and Orchestrator.
type Service struct {
	documentos *postgres.DocumentoRepo
	duplicate  *DuplicateDetector
	orch       *Orchestrator
	httpClient *http.Client
	originals  *OriginalStore
}

// NewService builds a Service. orch drives the actual split/vectorize
// pipeline once a Documento row exists.
func NewService(documentos *postgres.DocumentoRepo, duplicate *DuplicateDetector, orch *Orchestrator, opts ...Option) *Service {
	s := &Service{documentos: documentos, duplicate: duplicate, orch: orch, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadText persists markdown as a new Documento, failing with
// ErrDuplicateDocumento if (libraryId, CRC64(markdown)) already exists.
func (s *Service) UploadText(ctx context.Context, req UploadTextRequest) (*model.Documento, error) {
	checksum := s.duplicate.Checksum(req.Markdown)
	if existing, found, err := s.duplicate.CheckDuplicate(ctx, req.LibraryID, checksum); err != nil {
		return nil, fmt.Errorf("ingestion: duplicate check: %w", err)
	} else if found {
		return existing, ErrDuplicateDocumento
	}

	contentType := req.ContentType
	doc := model.NewDocumento(req.LibraryID, req.Title, "", contentType)
	doc.Checksum = checksum
	if req.Metadata != nil {
		doc.Metadata = req.Metadata
	}
	doc.Metadata["markdown"] = req.Markdown

	if err := s.documentos.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// UploadURL fetches sourceURL, extracts its main content, converts it to
// Markdown, and delegates to UploadText.
func (s *Service) UploadURL(ctx context.Context, req UploadURLRequest) (*model.Documento, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("ingestion: build request for %q: %w", req.URL, err)
	}
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ingestion: fetch %q: %w", req.URL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("ingestion: read response body for %q: %w", req.URL, err)
	}
	if len(body) > maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	content, err := convert.ExtractMainContent(req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("ingestion: extract main content: %w", err)
	}
	markdown, err := convert.ConvertToMarkdown(convert.FormatHTML, []byte(content))
	if err != nil {
		return nil, fmt.Errorf("ingestion: convert to markdown: %w", err)
	}

	title := req.Title
	if title == "" {
		title = req.URL
	}
	return s.UploadText(ctx, UploadTextRequest{LibraryID: req.LibraryID, Title: title, Markdown: markdown, Metadata: req.Metadata})
}

// UploadFile detects fileBytes' format, converts it to Markdown, and
// delegates to UploadText. Rejects files over 50 MB.
func (s *Service) UploadFile(ctx context.Context, req UploadFileRequest) (*model.Documento, error) {
	if len(req.FileBytes) > maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	format := convert.DetectFormat(req.FileBytes)
	markdown, err := convert.ConvertToMarkdown(format, req.FileBytes)
	if err != nil {
		return nil, fmt.Errorf("ingestion: convert %q to markdown: %w", req.Filename, err)
	}

	title := req.Title
	if title == "" {
		title = req.Filename
	}
	doc, err := s.UploadText(ctx, UploadTextRequest{LibraryID: req.LibraryID, Title: title, Markdown: markdown, Metadata: req.Metadata})
	if err != nil {
		return doc, err
	}
	if s.originals != nil {
		if err := s.originals.Put(ctx, doc.ID, req.Filename, req.FileBytes, string(format)); err != nil {
			return doc, fmt.Errorf("ingestion: retain original bytes: %w", err)
		}
	}
	return doc, nil
}

// Process runs the ingestion pipeline for an already-uploaded documento,
// implementing the process(documentId, overwrite) endpoint. The returned
// Result's Plan reports ALREADY_PROCESSED when no work was needed.
func (s *Service) Process(ctx context.Context, documentID int64, overwrite bool) (Result, error) {
	doc, err := s.documentos.GetByID(ctx, documentID)
	if err != nil {
		return Result{}, fmt.Errorf("ingestion: load documento %d: %w", documentID, err)
	}
	markdown, _ := doc.Metadata["markdown"].(string)
	return s.orch.Ingest(ctx, documentID, markdown, overwrite)
}

// Status returns the current ProgressRecord for documentID.
func (s *Service) Status(documentID int64) (ProgressRecord, bool) {
	return s.orch.status.Get(documentID)
}
