package game

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// --- Generator ---

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, count int, theme string) (GeneratedContent, error) {
	args := m.Called(ctx, count, theme)
	return args.Get(0).(GeneratedContent), args.Error(1)
}

// --- PasscodeHasher ---

// plainHasher stores passcodes as-is; real hashing is covered by the
// crypto package tests.
type plainHasher struct{}

func (plainHasher) Hash(passcode string) string        { return "plain:" + passcode }
func (plainHasher) Compare(hash, passcode string) bool { return hash == "plain:"+passcode }

// --- TicketManager ---

type MockTicketManager struct {
	mock.Mock
}

func (m *MockTicketManager) Generate(playerId, sessionId string, now time.Time) (string, error) {
	args := m.Called(playerId, sessionId, now)
	return args.String(0), args.Error(1)
}

func (m *MockTicketManager) Verify(token string) (string, string, error) {
	args := m.Called(token)
	return args.String(0), args.String(1), args.Error(2)
}
