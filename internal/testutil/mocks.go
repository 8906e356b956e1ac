package testutil

import (
	"context"
	"net/http"

	"github.com/stretchr/testify/mock"

	"github.com/givebridge/authfront/internal/idp"
	"github.com/givebridge/authfront/internal/profile"
	"github.com/givebridge/authfront/internal/user"
)

type MockIDPClient struct {
	mock.Mock
}

func (m *MockIDPClient) SessionFromTokens(ctx context.Context, tokens idp.Tokens) (*idp.Session, error) {
	args := m.Called(ctx, tokens)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.Session), args.Error(1)
}

func (m *MockIDPClient) SetSession(ctx context.Context, tabID string, session *idp.Session) error {
	args := m.Called(ctx, tabID, session)
	return args.Error(0)
}

func (m *MockIDPClient) CurrentSession(ctx context.Context, tabID string) (*idp.Session, error) {
	args := m.Called(ctx, tabID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*idp.Session), args.Error(1)
}

type MockProber struct {
	mock.Mock
}

func (m *MockProber) Probe(ctx context.Context, cookies []*http.Cookie) (*user.Record, error) {
	args := m.Called(ctx, cookies)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Record), args.Error(1)
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) Get(ctx context.Context, subjectID string) (*profile.Profile, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*profile.Profile), args.Error(1)
}

func (m *MockProfileStore) Upsert(ctx context.Context, p profile.Profile) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type MockNavigator struct {
	mock.Mock
}

func (m *MockNavigator) Go(path string, replace bool) {
	m.Called(path, replace)
}
