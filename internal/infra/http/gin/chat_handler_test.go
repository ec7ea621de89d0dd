package ginserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talenthub/internal/app/dto"
	chatservice "talenthub/internal/app/services/chat"
	domainuser "talenthub/internal/domain/user"
	"talenthub/internal/infra/config"
	"talenthub/internal/infra/obs"
	"talenthub/internal/infra/security"
	"talenthub/internal/infra/storage/memory"
	"talenthub/internal/infra/ws"
)

const testSecret = "test-secret"

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	store := memory.NewStore()
	directory := memory.NewUserDirectory()
	directory.Add(domainuser.Profile{ID: "alice", DisplayName: "Alice", Role: domainuser.RoleStudent})
	directory.Add(domainuser.Profile{ID: "bob", DisplayName: "Bob", Role: domainuser.RoleSchool})
	directory.Add(domainuser.Profile{ID: "eve", DisplayName: "Eve", Role: domainuser.RoleEmployer})

	service := chatservice.NewService(memory.Factory{Store: store}, directory, nil, nil)
	gateway := ws.NewGateway(service, nil)
	verifier := security.NewTokenVerifier(testSecret)

	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Chat:           ChatHandler{Service: service, Gateway: gateway},
		AuthMiddleware: AuthMiddleware{Verifier: verifier}.Handle,
	})
	return server.Handler
}

func bearerFor(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return "Bearer " + token
}

func doJSON(t *testing.T, handler http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChatEndpointsRequireAuth(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/conversations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStartConversationFlow(t *testing.T) {
	handler := newTestServer(t)
	alice := bearerFor(t, "alice", "student")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start", alice, map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var conv dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
	assert.NotEmpty(t, conv.ID)
	assert.Len(t, conv.Participants, 2)

	// repeat returns the same conversation
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start", alice, map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var again dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &again))
	assert.Equal(t, conv.ID, again.ID)
}

func TestStartConversationRejectsGroups(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start",
		bearerFor(t, "alice", "student"),
		map[string]any{"user_id": "bob", "is_group": true})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartConversationPermissionDenied(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start",
		bearerFor(t, "alice", "student"),
		map[string]any{"user_id": "eve"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSendAndListMessages(t *testing.T) {
	handler := newTestServer(t)
	alice := bearerFor(t, "alice", "student")
	bob := bearerFor(t, "bob", "school")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start", alice, map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/messages", alice, map[string]any{
		"conversation_id": conv.ID,
		"text":            "hello bob",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var msg dto.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, "hello bob", msg.Text)

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var page dto.ChatMessageList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, msg.ID, page.Items[0].ID)

	// outsiders get a 403
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/conversations/"+conv.ID+"/messages", bearerFor(t, "eve", "employer"), nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestMarkReadEndpoint(t *testing.T) {
	handler := newTestServer(t)
	alice := bearerFor(t, "alice", "student")
	bob := bearerFor(t, "bob", "school")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start", alice, map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/messages", alice, map[string]any{
		"conversation_id": conv.ID,
		"text":            "unread",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/conversations/"+conv.ID+"/read", bob, map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, 0, updated.UnreadCount)
}

func TestEditAndDeleteEndpoints(t *testing.T) {
	handler := newTestServer(t)
	alice := bearerFor(t, "alice", "student")
	bob := bearerFor(t, "bob", "school")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/conversations/start", alice, map[string]any{"user_id": "bob"})
	require.Equal(t, http.StatusOK, rec.Code)
	var conv dto.Conversation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/messages", alice, map[string]any{
		"conversation_id": conv.ID,
		"text":            "typo",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var msg dto.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/messages/"+msg.ID, bob, map[string]any{"text": "hijack"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doJSON(t, handler, http.MethodPatch, "/api/v1/messages/"+msg.ID, alice, map[string]any{"text": "fixed"})
	require.Equal(t, http.StatusOK, rec.Code)
	var edited dto.ChatMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &edited))
	assert.Equal(t, "fixed", edited.Text)
	assert.True(t, edited.Edited)

	rec = doJSON(t, handler, http.MethodDelete, "/api/v1/messages/"+msg.ID, alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestGetConversationNotFound(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/api/v1/conversations/missing", bearerFor(t, "alice", "student"), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	handler := newTestServer(t)
	rec := doJSON(t, handler, http.MethodGet, "/livez", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doJSON(t, handler, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
