// Package mocks provides test doubles for the geocode client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/livability-cli/internal/model"
	geocode "github.com/sells-group/livability-cli/pkg/geocode"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Reverse provides a mock function with given fields: ctx, p
func (_m *MockClient) Reverse(ctx context.Context, p model.Point) (*geocode.Place, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for Reverse")
	}

	var r0 *geocode.Place
	if rf, ok := ret.Get(0).(func(context.Context, model.Point) (*geocode.Place, error)); ok {
		return rf(ctx, p)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*geocode.Place)
	}
	return r0, ret.Error(1)
}

// NewMockClient creates a new instance of MockClient. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
