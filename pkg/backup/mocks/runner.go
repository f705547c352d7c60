// Code generated manually. DO NOT EDIT.

package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/williamokano/backup-tool/pkg/backup"
)

// MockRunner is a mock implementation of the backup.Runner interface
type MockRunner struct {
	mock.Mock
}

// LookPath provides a mock function with given fields: name
func (m *MockRunner) LookPath(name string) (string, error) {
	ret := m.Called(name)

	var r0 string
	var r1 error
	if rf, ok := ret.Get(0).(func(string) (string, error)); ok {
		return rf(name)
	}
	r0 = ret.Get(0).(string)
	r1 = ret.Error(1)

	return r0, r1
}

// Run provides a mock function with given fields: ctx, cmd
func (m *MockRunner) Run(ctx context.Context, cmd backup.Command) (backup.RunResult, error) {
	ret := m.Called(ctx, cmd)

	var r0 backup.RunResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, backup.Command) (backup.RunResult, error)); ok {
		return rf(ctx, cmd)
	}
	r0 = ret.Get(0).(backup.RunResult)
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockRunner creates a new instance of MockRunner
func NewMockRunner(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockRunner {
	mock_1 := &MockRunner{}
	mock_1.Mock.Test(t)

	t.Cleanup(func() { mock_1.AssertExpectations(t) })

	return mock_1
}
