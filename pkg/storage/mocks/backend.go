// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/williamokano/backup-tool/pkg/storage"
)

// MockBackend is a mock implementation of the storage.Backend interface
type MockBackend struct {
	mock.Mock
}

// Name provides a mock function with given fields:
func (m *MockBackend) Name() string {
	return m.Called().String(0)
}

// Type provides a mock function with given fields:
func (m *MockBackend) Type() string {
	return m.Called().String(0)
}

// Write provides a mock function with given fields: ctx, sourcePath, destPath
func (m *MockBackend) Write(ctx context.Context, sourcePath string, destPath string) error {
	return m.Called(ctx, sourcePath, destPath).Error(0)
}

// Delete provides a mock function with given fields: ctx, path
func (m *MockBackend) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

// List provides a mock function with given fields: ctx, pattern
func (m *MockBackend) List(ctx context.Context, pattern string) ([]storage.FileInfo, error) {
	ret := m.Called(ctx, pattern)

	if rf, ok := ret.Get(0).(func(context.Context, string) ([]storage.FileInfo, error)); ok {
		return rf(ctx, pattern)
	}

	var r0 []storage.FileInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]storage.FileInfo)
	}
	return r0, ret.Error(1)
}

// Stat provides a mock function with given fields: ctx, path
func (m *MockBackend) Stat(ctx context.Context, path string) (*storage.FileInfo, error) {
	ret := m.Called(ctx, path)

	var r0 *storage.FileInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*storage.FileInfo)
	}
	return r0, ret.Error(1)
}

// Exists provides a mock function with given fields: ctx, path
func (m *MockBackend) Exists(ctx context.Context, path string) (bool, error) {
	ret := m.Called(ctx, path)
	return ret.Bool(0), ret.Error(1)
}

// Close provides a mock function with given fields:
func (m *MockBackend) Close() error {
	return m.Called().Error(0)
}

// NewMockBackend creates a new instance of MockBackend
func NewMockBackend(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBackend {
	mock_1 := &MockBackend{}
	mock_1.Mock.Test(t)

	t.Cleanup(func() { mock_1.AssertExpectations(t) })

	return mock_1
}
