package game

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Didrablian/deceptivemind-sub000/domain"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Engine, *MockTicketManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	e, _, _ := newTestEngine(new(MockGenerator))
	tickets := &MockTicketManager{}
	h := NewHandler(e, tickets, zerolog.Nop())

	router := gin.New()
	RegisterRoutes(router, h)
	return router, e, tickets
}

func TestCreateSessionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testCases := []struct {
		name         string
		body         string
		setupMocks   func(*MockTicketManager)
		expectedCode int
		expectedBody string
	}{
		{
			name:         "invalid json",
			body:         `{invalid}`,
			setupMocks:   func(m *MockTicketManager) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-request-format",
		},
		{
			name:         "missing name",
			body:         `{"variant":"imposter"}`,
			setupMocks:   func(m *MockTicketManager) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: "invalid-request-format",
		},
		{
			name:         "unknown variant",
			body:         `{"name":"alice","variant":"mahjong"}`,
			setupMocks:   func(m *MockTicketManager) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: "unknown-variant",
		},
		{
			name: "created with ticket",
			body: `{"name":"alice","variant":"imposter"}`,
			setupMocks: func(m *MockTicketManager) {
				m.On("Generate", mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
					Return("ticket-123", nil)
			},
			expectedCode: http.StatusCreated,
			expectedBody: "ticket-123",
		},
		{
			name: "ticket failure is a server error",
			body: `{"name":"alice","variant":"imposter"}`,
			setupMocks: func(m *MockTicketManager) {
				m.On("Generate", mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
					Return("", domain.TokenError)
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: "unknown-error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			router, _, tickets := newTestRouter(t)
			tc.setupMocks(tickets)

			req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewBufferString(tc.body))
			req.Header.Set("Content-Type", "application/json")
			res := httptest.NewRecorder()

			router.ServeHTTP(res, req)

			assert.Equal(t, tc.expectedCode, res.Code)
			assert.Contains(t, res.Body.String(), tc.expectedBody)
			tickets.AssertExpectations(t)
		})
	}
}

func TestJoinSessionHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, e, tickets := newTestRouter(t)
	tickets.On("Generate", mock.AnythingOfType("string"), mock.AnythingOfType("string"), mock.AnythingOfType("time.Time")).
		Return("ticket-456", nil)

	s, _, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
	require.NoError(t, err)

	doJoin := func(code, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+code+"/join", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		return res
	}

	t.Run("joins and returns a ticket", func(t *testing.T) {
		res := doJoin(s.Code, `{"name":"bob"}`)
		assert.Equal(t, http.StatusOK, res.Code)

		var body sessionResponse
		require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
		assert.Equal(t, "ticket-456", body.Ticket)
		assert.NotEmpty(t, body.PlayerId)
		assert.Len(t, body.Session.Players, 2)
	})

	t.Run("unknown code is 404", func(t *testing.T) {
		res := doJoin("NOPE42", `{"name":"carol"}`)
		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.Contains(t, res.Body.String(), "session-not-found")
	})

	t.Run("bad passcode is 403", func(t *testing.T) {
		private, _, err := e.CreateSession(context.Background(), "imposter", "host", false, "sesame")
		require.NoError(t, err)
		res := doJoin(private.Code, `{"name":"carol","passcode":"wrong"}`)
		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.Contains(t, res.Body.String(), "invalid-passcode")
	})

	t.Run("full session is 409", func(t *testing.T) {
		full, _, err := e.CreateSession(context.Background(), "imposter", "host", false, "")
		require.NoError(t, err)
		for i := 0; i < 9; i++ {
			res := doJoin(full.Code, fmt.Sprintf(`{"name":"p%d"}`, i))
			require.Equal(t, http.StatusOK, res.Code)
		}
		res := doJoin(full.Code, `{"name":"straggler"}`)
		assert.Equal(t, http.StatusConflict, res.Code)
		assert.Contains(t, res.Body.String(), "session-full")
	})
}

func TestListSessionsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router, e, _ := newTestRouter(t)
	public, _, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
	require.NoError(t, err)
	_, _, err = e.CreateSession(context.Background(), "imposter", "bob", true, "")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/sessions", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var body struct {
		Sessions []domain.Session `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	require.Len(t, body.Sessions, 1)
	assert.Equal(t, public.Id, body.Sessions[0].Id)
}

func TestSessionSocketHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("rejects a bad ticket", func(t *testing.T) {
		router, e, tickets := newTestRouter(t)
		s, _, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
		require.NoError(t, err)
		tickets.On("Verify", "forged").Return("", "", domain.ErrCorruptedToken)

		req := httptest.NewRequest(http.MethodGet, "/sessions/"+s.Id+"/ws?ticket=forged", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("rejects a ticket for another session", func(t *testing.T) {
		router, e, tickets := newTestRouter(t)
		s, hostId, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
		require.NoError(t, err)
		tickets.On("Verify", "stolen").Return(hostId, "some-other-session", nil)

		req := httptest.NewRequest(http.MethodGet, "/sessions/"+s.Id+"/ws?ticket=stolen", nil)
		res := httptest.NewRecorder()
		router.ServeHTTP(res, req)
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	})

	t.Run("streams snapshots and applies actions", func(t *testing.T) {
		router, e, tickets := newTestRouter(t)
		s, hostId, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
		require.NoError(t, err)
		tickets.On("Verify", "good-ticket").Return(hostId, s.Id, nil)

		server := httptest.NewServer(router)
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + s.Id + "/ws?ticket=good-ticket"
		conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
		defer conn.Close()

		// initial snapshot arrives without any client message
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var first serverMessage
		require.NoError(t, conn.ReadJSON(&first))
		assert.Equal(t, "session", first.Type)
		require.NotNil(t, first.Session)
		assert.Equal(t, s.Id, first.Session.Id)

		// a chat action comes back as a fresh snapshot
		require.NoError(t, conn.WriteJSON(clientMessage{
			Type:    "action",
			Action:  ActionChat,
			Payload: ActionPayload{Text: "hello"},
		}))
		var second serverMessage
		require.NoError(t, conn.ReadJSON(&second))
		assert.Equal(t, "session", second.Type)
		require.NotNil(t, second.Session)
		require.Len(t, second.Session.ChatLog, 1)
		assert.Equal(t, "hello", second.Session.ChatLog[0].Text)

		// invalid actions report an error without killing the stream
		require.NoError(t, conn.WriteJSON(clientMessage{
			Type:   "action",
			Action: ActionVote,
			Payload: ActionPayload{
				TargetId: hostId,
			},
		}))
		var third serverMessage
		require.NoError(t, conn.ReadJSON(&third))
		assert.Equal(t, "error", third.Type)
		assert.Equal(t, domain.ErrWrongPhase.Error(), third.Reason)

		// starting with too few players errors the same way
		require.NoError(t, conn.WriteJSON(clientMessage{Type: "start"}))
		var fourth serverMessage
		require.NoError(t, conn.ReadJSON(&fourth))
		assert.Equal(t, "error", fourth.Type)
		assert.Equal(t, domain.ErrNotEnoughPlayers.Error(), fourth.Reason)
	})

	t.Run("garbage input reports a format error", func(t *testing.T) {
		router, e, tickets := newTestRouter(t)
		s, hostId, err := e.CreateSession(context.Background(), "imposter", "alice", false, "")
		require.NoError(t, err)
		tickets.On("Verify", "good-ticket").Return(hostId, s.Id, nil)

		server := httptest.NewServer(router)
		defer server.Close()

		wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/sessions/" + s.Id + "/ws?ticket=good-ticket"
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		defer conn.Close()

		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var first serverMessage
		require.NoError(t, conn.ReadJSON(&first)) // initial snapshot

		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
		var msg serverMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "error", msg.Type)
		assert.Equal(t, "invalid-message-format", msg.Reason)
	})
}
