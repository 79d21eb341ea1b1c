package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"coverletter-backend/internal/extract"
	"coverletter-backend/internal/shared/storage/object"
	"coverletter-backend/internal/shared/telemetry"
	"coverletter-backend/internal/vectorstore"
)

// Indexer makes stored documents searchable.
type Indexer interface {
	Upsert(ctx context.Context, doc vectorstore.Document) ([]string, error)
}

// Service contains business logic for documents.
type Service struct {
	Repo  DocumentsRepo
	Store object.ObjectStore
	Index Indexer
	Now   func() time.Time
}

// CreateInput is the text form of a new document.
type CreateInput struct {
	OwnerID  string
	DocType  string
	Content  string
	Metadata map[string]string
}

// Created is a stored document and the IDs of its indexed chunks.
type Created struct {
	Document Document
	ChunkIDs []string
}

// Create validates, stores and indexes a document. Indexing failures are
// logged and leave ChunkIDs empty; the document is still stored.
func (s *Service) Create(ctx context.Context, in CreateInput) (Created, error) {
	return s.create(ctx, in, nil)
}

func (s *Service) create(ctx context.Context, in CreateInput, upload *object.Object) (Created, error) {
	in.DocType = strings.TrimSpace(in.DocType)
	if !ValidDocType(in.DocType) {
		return Created{}, fmt.Errorf("%w: doc_type must be one of resume, job_description, cover_letter", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return Created{}, fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}

	doc := Document{
		ID:        uuid.NewString(),
		OwnerID:   in.OwnerID,
		DocType:   in.DocType,
		Content:   in.Content,
		Metadata:  in.Metadata,
		CreatedAt: s.now(),
	}
	if doc.Metadata == nil {
		doc.Metadata = map[string]string{}
	}
	if upload != nil {
		doc.StorageKey = upload.Key
		doc.MimeType = upload.MimeType
		doc.FileName = doc.Metadata["file_name"]
		if s.Store != nil {
			doc.StorageProvider = s.Store.Provider()
		}
	}

	if err := s.Repo.Create(ctx, doc); err != nil {
		return Created{}, fmt.Errorf("store document: %w", err)
	}

	out := Created{Document: doc, ChunkIDs: []string{}}
	if s.Index == nil {
		return out, nil
	}
	ids, err := s.Index.Upsert(ctx, vectorstore.Document{
		ID:       doc.ID,
		OwnerID:  doc.OwnerID,
		DocType:  doc.DocType,
		Content:  doc.Content,
		Metadata: doc.Metadata,
	})
	if err != nil {
		telemetry.Warn("documents.index_failed", map[string]any{
			"document_id": doc.ID,
			"doc_type":    doc.DocType,
			"error":       err.Error(),
		})
		return out, nil
	}
	out.ChunkIDs = ids
	return out, nil
}

// Upload extracts the text of an uploaded file, keeps the original in object
// storage and creates the document from the text. Nothing is stored when the
// file cannot be read; the original is removed when the document cannot be
// created.
func (s *Service) Upload(ctx context.Context, ownerID, docType, fileName string, r io.Reader) (Created, error) {
	if strings.TrimSpace(fileName) == "" {
		return Created{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if !ValidDocType(docType) {
		return Created{}, fmt.Errorf("%w: doc_type must be one of resume, job_description, cover_letter", ErrInvalidInput)
	}
	if s.Store == nil {
		return Created{}, fmt.Errorf("upload: no object store configured")
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return Created{}, fmt.Errorf("%w: unable to read file", ErrInvalidInput)
	}

	text, err := extract.ExtractText(ctx, data, object.DetectType(fileName, data), fileName)
	if err != nil {
		return Created{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if strings.TrimSpace(text) == "" {
		return Created{}, fmt.Errorf("%w: no text found in file", ErrInvalidInput)
	}

	obj, err := s.Store.Put(ctx, ownerID, fileName, bytes.NewReader(data))
	if errors.Is(err, object.ErrInvalidName) {
		return Created{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err != nil {
		return Created{}, fmt.Errorf("store upload: %w", err)
	}

	out, err := s.create(ctx, CreateInput{
		OwnerID:  ownerID,
		DocType:  docType,
		Content:  text,
		Metadata: map[string]string{"file_name": fileName},
	}, &obj)
	if err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), obj.Key); delErr != nil {
			telemetry.Warn("documents.upload_cleanup_failed", map[string]any{
				"storage_key": obj.Key,
				"error":       delErr.Error(),
			})
		}
		return Created{}, err
	}
	return out, nil
}

// OpenFile streams the uploaded original behind a document. Documents of
// other owners and documents created from text report ErrNotFound.
func (s *Service) OpenFile(ctx context.Context, ownerID, id string) (Document, io.ReadCloser, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return Document{}, nil, err
	}
	if doc.OwnerID != ownerID || doc.StorageKey == "" {
		return Document{}, nil, ErrNotFound
	}
	if s.Store == nil {
		return Document{}, nil, fmt.Errorf("open file: no object store configured")
	}
	rc, err := s.Store.Open(ctx, doc.StorageKey)
	if err != nil {
		return Document{}, nil, fmt.Errorf("open file %s: %w", doc.StorageKey, err)
	}
	return doc, rc, nil
}

// Get returns a document by ID.
func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Document{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, id)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
