package mocks

import (
	"context"
	"io"

	"briefcase/internal/model"
	"briefcase/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockExchangeService struct {
	mock.Mock
}

func (m *MockExchangeService) Upload(ctx context.Context, r io.Reader, in service.UploadInput) (*model.Document, error) {
	args := m.Called(ctx, r, in)
	if doc, ok := args.Get(0).(*model.Document); ok {
		return doc, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockExchangeService) Download(ctx context.Context, id, userID string) (*service.DownloadResult, error) {
	args := m.Called(ctx, id, userID)
	if res, ok := args.Get(0).(*service.DownloadResult); ok {
		return res, args.Error(1)
	}
	return nil, args.Error(1)
}
