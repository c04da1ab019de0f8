package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsharathc/quizlive/internal/auth"
	ws "github.com/nsharathc/quizlive/pkg/http/ws"
)

var httpTestSecret = []byte("handler-test-secret")

func mintToken(t *testing.T, userID uuid.UUID, role string) string {
	t.Helper()
	claims := auth.Claims{
		UserID:      userID,
		DisplayName: "tester",
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(httpTestSecret)
	require.NoError(t, err)
	return signed
}

func newTestHandler(t *testing.T, rig *testRig) *Handler {
	t.Helper()
	verifier := auth.NewVerifier(httpTestSecret)
	return NewHandler(rig.registry, ws.NewHub(zerolog.Nop()), verifier, zerolog.Nop())
}

func TestHandleCreateSession(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)
	teacherID := uuid.New()

	body := strings.NewReader(`{"quiz_id":"` + uuid.New().String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, teacherID, auth.RoleTeacher))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp CreateSessionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusPending, resp.Status)
	assert.Len(t, resp.AccessCode, codeLength)

	orch, err := rig.registry.GetByAccessCode(resp.AccessCode)
	require.NoError(t, err)
	assert.Equal(t, teacherID, orch.Snapshot().CreatorID)
}

func TestHandleCreateRequiresTeacherRole(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)

	body := strings.NewReader(`{"quiz_id":"` + uuid.New().String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), auth.RoleStudent))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, rig.registry.Len())
}

func TestHandleCreateRequiresAuth(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)

	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleCreateRejectsBadQuizID(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)

	body := strings.NewReader(`{"quiz_id":"not-a-uuid"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions", body)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), auth.RoleTeacher))
	rec := httptest.NewRecorder()

	handler.HandleCreate(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetSessionState(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)
	teacherID := uuid.New()
	orch := createSession(t, rig, teacherID)
	require.NoError(t, orch.Start(teacherID))

	userID := uuid.New()
	_, err := orch.Join(userID, uuid.New(), "viewer")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+orch.Snapshot().ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, teacherID, auth.RoleTeacher))
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionStateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusActive, resp.Status)
	assert.Equal(t, -1, resp.CurrentQuestionIndex)
	require.Len(t, resp.Leaderboard, 1)
	assert.Equal(t, userID, resp.Leaderboard[0].UserID)
}

func TestHandleGetEndedSessionFallsBackToStore(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)
	teacherID := uuid.New()
	orch := createSession(t, rig, teacherID)
	sess := orch.Snapshot()

	require.NoError(t, orch.Start(teacherID))
	require.NoError(t, orch.End(teacherID))

	ended := sess
	ended.Status = StatusEnded
	rig.store.storedRow = &ended

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID.String(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, teacherID, auth.RoleTeacher))
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SessionStateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, StatusEnded, resp.Status)
	assert.Empty(t, resp.Leaderboard)
}

func TestHandleGetUnknownSession(t *testing.T) {
	rig := newTestRig(sampleQuestions(uuid.New()))
	handler := newTestHandler(t, rig)

	req := httptest.NewRequest(http.MethodGet, "/v1/sessions/"+uuid.New().String(), nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New(), auth.RoleStudent))
	rec := httptest.NewRecorder()

	handler.HandleGet(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
