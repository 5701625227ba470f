// Package server exposes the extraction pipeline over gRPC.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/cnis-extractor/constants"
	"github.com/joseph-ayodele/cnis-extractor/internal/async"
	"github.com/joseph-ayodele/cnis-extractor/internal/common"
	"github.com/joseph-ayodele/cnis-extractor/internal/entity"
	"github.com/joseph-ayodele/cnis-extractor/internal/external"
)

// maxPathLength matches PATH_MAX on Linux.
const maxPathLength = 4096

// Registrar is satisfied by *ingest.Registrar.
type Registrar interface {
	RegisterFile(ctx context.Context, caseID *uuid.UUID, path string, docType constants.DocumentType) (*entity.Document, error)
}

// Exporter is satisfied by *export.Service.
type Exporter interface {
	ExportCaseXLSX(ctx context.Context, caseID uuid.UUID) ([]byte, error)
}

type ExtractionService struct {
	registrar Registrar
	processor async.DocumentProcessor
	queue     async.Queue
	exporter  Exporter
	external  external.StructuredExtractor
	logger    *slog.Logger
}

func NewExtractionService(
	registrar Registrar,
	processor async.DocumentProcessor,
	queue async.Queue,
	exporter Exporter,
	ext external.StructuredExtractor,
	logger *slog.Logger,
) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{
		registrar: registrar,
		processor: processor,
		queue:     queue,
		exporter:  exporter,
		external:  ext,
		logger:    logger,
	}
}

var _ ExtractionServer = (*ExtractionService)(nil)

// RegisterDocument stores a document for a file already on the server's disk. With "process" set the
// pipeline runs synchronously and its result is returned under "result".
func (s *ExtractionService) RegisterDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path := stringField(req, "path")
	docTypeRaw := stringField(req, "document_type")
	caseRaw := stringField(req, "case_id")

	v := common.NewValidator().
		Field("path", path, common.Required, common.MaxLength(maxPathLength)).
		Field("document_type", docTypeRaw, common.DocumentType).
		Field("case_id", caseRaw, common.OptionalUUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		s.logger.Warn("register document rejected", "error", v.ErrorMessage())
		return nil, err
	}
	docType, _ := constants.ParseDocumentType(docTypeRaw)
	var caseID *uuid.UUID
	if caseRaw != "" {
		id := uuid.MustParse(caseRaw)
		caseID = &id
	}

	doc, err := s.registrar.RegisterFile(ctx, caseID, path, docType)
	if err != nil {
		s.logger.Error("register document failed", "path", path, "error", err)
		return nil, common.InvalidArgumentErrorf("register: %v", err)
	}

	out := map[string]any{
		"document_id":   doc.ID.String(),
		"document_type": string(doc.Type),
		"media_type":    doc.MediaType,
		"file_path":     doc.FilePath,
	}
	if boolField(req, "process") {
		res := s.processor.ProcessDocument(ctx, doc.ID)
		m, err := toMap(res)
		if err != nil {
			return nil, common.InternalErrorf("encode result: %v", err)
		}
		out["result"] = m
	}
	return structpb.NewStruct(out)
}

// ProcessDocument runs the pipeline synchronously. A pipeline failure is a normal response with
// success=false; only an unknown document is a NotFound status.
func (s *ExtractionService) ProcessDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := documentID(req)
	if err != nil {
		return nil, err
	}
	res := s.processor.ProcessDocument(ctx, id)
	if !res.Success && errors.Is(res.Err, common.ErrNotFound) {
		return nil, common.ToStatus(res.Err)
	}
	m, err := toMap(res)
	if err != nil {
		return nil, common.InternalErrorf("encode result: %v", err)
	}
	return structpb.NewStruct(m)
}

func (s *ExtractionService) EnqueueDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := documentID(req)
	if err != nil {
		return nil, err
	}
	if s.queue == nil {
		return nil, common.UnavailableError("background processing is disabled")
	}
	job := async.Job{
		DocumentID:  id,
		SubmittedAt: time.Now(),
		RequestID:   common.RequestIDFromContext(ctx),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		if errors.Is(err, async.ErrQueueClosed) {
			return nil, common.UnavailableError(err.Error())
		}
		return nil, common.ToStatus(err)
	}
	return structpb.NewStruct(map[string]any{"document_id": id.String(), "queued": true})
}

// ProbeEnvironment reports the structured extractor's executable, script and optional capabilities.
func (s *ExtractionService) ProbeEnvironment(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	env := s.external.Probe(ctx)
	m, err := toMap(env)
	if err != nil {
		return nil, common.InternalErrorf("encode environment: %v", err)
	}
	m["available"] = s.external.Available()
	return structpb.NewStruct(m)
}

func (s *ExtractionService) ExportCase(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	caseRaw := stringField(req, "case_id")
	v := common.NewValidator().Field("case_id", caseRaw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}
	xlsx, err := s.exporter.ExportCaseXLSX(ctx, uuid.MustParse(caseRaw))
	if err != nil {
		s.logger.Error("case export failed", "case_id", caseRaw, "err", err)
		return nil, common.ToStatus(err)
	}
	return wrapperspb.Bytes(xlsx), nil
}

func documentID(req *structpb.Struct) (uuid.UUID, error) {
	raw := stringField(req, "document_id")
	v := common.NewValidator().Field("document_id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v); err != nil {
		return uuid.Nil, err
	}
	return uuid.MustParse(raw), nil
}

func stringField(req *structpb.Struct, name string) string {
	return strings.TrimSpace(req.GetFields()[name].GetStringValue())
}

func boolField(req *structpb.Struct, name string) bool {
	return req.GetFields()[name].GetBoolValue()
}

func toMap(v any) (map[string]any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode %T: %w", v, err)
	}
	return m, nil
}
