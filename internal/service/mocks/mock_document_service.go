package mocks

import (
	"context"

	"briefcase/internal/model"
	"briefcase/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentService) ListSent(ctx context.Context, userID string) ([]model.Document, error) {
	args := m.Called(ctx, userID)
	if docs, ok := args.Get(0).([]model.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentService) ListReceived(ctx context.Context, userID string) ([]model.Document, error) {
	args := m.Called(ctx, userID)
	if docs, ok := args.Get(0).([]model.Document); ok {
		return docs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockDocumentService) EvaluateAccess(doc *model.Document, userID string) service.AccessDecision {
	args := m.Called(doc, userID)
	return args.Get(0).(service.AccessDecision)
}

func (m *MockDocumentService) RecordView(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentService) ApplyDestructionPolicy(ctx context.Context, doc *model.Document, viewCount int) (bool, error) {
	args := m.Called(ctx, doc, viewCount)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, id, userID string) error {
	args := m.Called(ctx, id, userID)
	return args.Error(0)
}

func (m *MockDocumentService) SweepExpired(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}
