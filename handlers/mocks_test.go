package handlers

import (
	"context"
	"net/url"

	"github.com/stretchr/testify/mock"
	"github.com/upb/tron-node-provider/services/providers"
)

// MockGateway is a mock implementation of NodeGateway
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Get(role providers.Role) (providers.Provider, error) {
	args := m.Called(role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(providers.Provider), args.Error(1)
}

func (m *MockGateway) Request(ctx context.Context, method, path string, body any, query url.Values) (any, error) {
	args := m.Called(ctx, method, path, body, query)
	return args.Get(0), args.Error(1)
}

func (m *MockGateway) Status(ctx context.Context) map[providers.Role]bool {
	args := m.Called(ctx)
	return args.Get(0).(map[providers.Role]bool)
}

func (m *MockGateway) Roles() []providers.Role {
	args := m.Called()
	return args.Get(0).([]providers.Role)
}

// MockProvider is a mock implementation of providers.Provider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) NodeURL() string {
	return m.Called().String(0)
}

func (m *MockProvider) Request(ctx context.Context, method, path string, body any, query url.Values) (any, error) {
	args := m.Called(ctx, method, path, body, query)
	return args.Get(0), args.Error(1)
}

func (m *MockProvider) IsConnected(ctx context.Context) bool {
	return m.Called(ctx).Bool(0)
}
