package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"compliance-assistant-be/internal/dto"
	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/pkg/logger"
	"compliance-assistant-be/internal/repository/specification"
	"compliance-assistant-be/internal/repository/unitofwork"
	"compliance-assistant-be/pkg/events"
	"compliance-assistant-be/pkg/objectstore"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var ErrDocumentNotFound = fiber.NewError(fiber.StatusNotFound, "Document not found")

var allowedMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"text/plain":    true,
	"text/markdown": true,
}

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, fileName, mimeType string, data []byte) (*dto.DocumentResponse, error)
	List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error)
	Show(ctx context.Context, userId, id uuid.UUID) (*dto.DocumentResponse, error)
	SignedURL(ctx context.Context, userId, id uuid.UUID) (*dto.SignedURLResponse, error)
	Delete(ctx context.Context, userId, id uuid.UUID) error
}

type documentService struct {
	uowFactory   unitofwork.RepositoryFactory
	objects      objectstore.Store
	publisher    events.Publisher
	maxFileSize  int
	signedURLTTL time.Duration
	logger       logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	objects objectstore.Store,
	publisher events.Publisher,
	maxFileSize int,
	signedURLTTL time.Duration,
	log logger.ILogger,
) IDocumentService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &documentService{
		uowFactory:   uowFactory,
		objects:      objects,
		publisher:    publisher,
		maxFileSize:  maxFileSize,
		signedURLTTL: signedURLTTL,
		logger:       log,
	}
}

// NormalizeMimeType drops parameters and falls back to the file extension
// when the client sent a generic type.
func NormalizeMimeType(fileName, mimeType string) string {
	mt := strings.ToLower(strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0]))
	if mt != "" && mt != "application/octet-stream" {
		return mt
	}
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	}
	return mt
}

func (s *documentService) Upload(ctx context.Context, userId uuid.UUID, fileName, mimeType string, data []byte) (*dto.DocumentResponse, error) {
	if len(data) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, "File is empty")
	}
	if s.maxFileSize > 0 && len(data) > s.maxFileSize {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, fmt.Sprintf("File exceeds the %d MB limit", s.maxFileSize/(1024*1024)))
	}
	mimeType = NormalizeMimeType(fileName, mimeType)
	if !allowedMimeTypes[mimeType] {
		return nil, fiber.NewError(fiber.StatusUnsupportedMediaType, "Unsupported file type")
	}

	id := uuid.New()
	objectPath := objectstore.ObjectPath(userId.String(), id.String(), fileName)
	if err := s.objects.Upload(ctx, objectPath, data); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	doc := &entity.Document{
		Id:          id,
		UserId:      userId,
		FileName:    filepath.Base(fileName),
		FileSize:    int64(len(data)),
		MimeType:    mimeType,
		StoragePath: objectPath,
	}
	err := unitofwork.WithinTransaction(ctx, s.uowFactory, func(uow unitofwork.UnitOfWork) error {
		return uow.DocumentRepository().Create(ctx, doc)
	})
	if err != nil {
		if rmErr := s.objects.Remove(ctx, objectPath); rmErr != nil {
			s.logger.Warn("DocumentService", "Failed to remove orphaned object", map[string]interface{}{"path": objectPath, "error": rmErr.Error()})
		}
		return nil, err
	}

	s.logger.Info("DocumentService", "Document uploaded", map[string]interface{}{
		"user_id": userId, "document_id": id, "size": doc.FileSize,
	})
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.DocumentUploaded(userId.String(), id.String(), doc.FileName, doc.FileSize)); err != nil {
			s.logger.Warn("DocumentService", "Failed to publish event", map[string]interface{}{"error": err.Error()})
		}
	}

	return toDocumentResponse(doc), nil
}

func (s *documentService) List(ctx context.Context, userId uuid.UUID, req *dto.ListDocumentsRequest) (*dto.ListDocumentsResponse, error) {
	page, limit := req.Page, req.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	filters := []specification.Specification{
		specification.ByUserID{UserID: userId},
		specification.FileNameContains{Term: req.Search},
	}

	total, err := uow.DocumentRepository().Count(ctx, filters...)
	if err != nil {
		return nil, err
	}

	docs, err := uow.DocumentRepository().FindAll(ctx, append(filters,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: limit, Offset: (page - 1) * limit},
	)...)
	if err != nil {
		return nil, err
	}

	result := make([]*dto.DocumentResponse, 0, len(docs))
	for _, d := range docs {
		result = append(result, toDocumentResponse(d))
	}
	return &dto.ListDocumentsResponse{Documents: result, Total: total, Page: page, Limit: limit}, nil
}

func (s *documentService) find(ctx context.Context, userId, id uuid.UUID) (*entity.Document, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	doc, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: id},
		specification.ByUserID{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) Show(ctx context.Context, userId, id uuid.UUID) (*dto.DocumentResponse, error) {
	doc, err := s.find(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	return toDocumentResponse(doc), nil
}

func (s *documentService) SignedURL(ctx context.Context, userId, id uuid.UUID) (*dto.SignedURLResponse, error) {
	doc, err := s.find(ctx, userId, id)
	if err != nil {
		return nil, err
	}
	url, err := s.objects.CreateSignedURL(doc.StoragePath, s.signedURLTTL)
	if err != nil {
		return nil, err
	}
	return &dto.SignedURLResponse{URL: url, ExpiresAt: time.Now().Add(s.signedURLTTL)}, nil
}

// Delete removes the metadata row first; a leftover object is only logged.
func (s *documentService) Delete(ctx context.Context, userId, id uuid.UUID) error {
	doc, err := s.find(ctx, userId, id)
	if err != nil {
		return err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.DocumentRepository().Delete(ctx, doc.Id); err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, doc.StoragePath); err != nil {
		s.logger.Warn("DocumentService", "Failed to remove stored object", map[string]interface{}{"path": doc.StoragePath, "error": err.Error()})
	}
	return nil
}

func toDocumentResponse(d *entity.Document) *dto.DocumentResponse {
	return &dto.DocumentResponse{
		Id:        d.Id,
		FileName:  d.FileName,
		FileSize:  d.FileSize,
		MimeType:  d.MimeType,
		CreatedAt: d.CreatedAt,
	}
}
