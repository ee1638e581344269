// Package mocks provides test doubles for the google client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	"github.com/sells-group/livability-cli/internal/model"
	google "github.com/sells-group/livability-cli/pkg/google"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// NearbySearch provides a mock function with given fields: ctx, req
func (_m *MockClient) NearbySearch(ctx context.Context, req google.NearbyRequest) (*google.NearbyResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for NearbySearch")
	}

	var r0 *google.NearbyResponse
	if rf, ok := ret.Get(0).(func(context.Context, google.NearbyRequest) (*google.NearbyResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.NearbyResponse)
	}
	return r0, ret.Error(1)
}

// DistanceMatrix provides a mock function with given fields: ctx, req
func (_m *MockClient) DistanceMatrix(ctx context.Context, req google.DistanceRequest) (*google.DistanceResponse, error) {
	ret := _m.Called(ctx, req)

	if len(ret) == 0 {
		panic("no return value specified for DistanceMatrix")
	}

	var r0 *google.DistanceResponse
	if rf, ok := ret.Get(0).(func(context.Context, google.DistanceRequest) (*google.DistanceResponse, error)); ok {
		return rf(ctx, req)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.DistanceResponse)
	}
	return r0, ret.Error(1)
}

// NearestGrocery provides a mock function with given fields: ctx, p
func (_m *MockClient) NearestGrocery(ctx context.Context, p model.Point) (*google.GroceryDistance, error) {
	ret := _m.Called(ctx, p)

	if len(ret) == 0 {
		panic("no return value specified for NearestGrocery")
	}

	var r0 *google.GroceryDistance
	if rf, ok := ret.Get(0).(func(context.Context, model.Point) (*google.GroceryDistance, error)); ok {
		return rf(ctx, p)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*google.GroceryDistance)
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
