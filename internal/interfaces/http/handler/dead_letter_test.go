package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/erp/posting/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupDeadLetterTestRouter() (*gin.Engine, *MockDeadLetterService) {
	deadLetters := new(MockDeadLetterService)
	h := NewDeadLetterHandler(deadLetters)

	router := gin.New()
	router.Use(withIdentity())
	router.GET("/dead-letters", h.List)
	router.GET("/dead-letters/:id", h.Get)
	router.POST("/dead-letters/:id/replay", h.Replay)
	router.POST("/dead-letters/:id/resolve", h.Resolve)
	return router, deadLetters
}

func createTestDeadLetter(status shared.DeadLetterStatus) *shared.DeadLetter {
	at := time.Date(2026, 3, 31, 18, 5, 0, 0, time.UTC)
	return &shared.DeadLetter{
		ID:           uuid.New(),
		EventID:      uuid.New(),
		ConsumerName: "accounting.tender_posting",
		TenantID:     testTenantID,
		EventType:    "tender.recorded.v1",
		Payload:      []byte(`{"tender_id":"T-1001"}`),
		ErrorMessage: "UNBALANCED_JOURNAL: debits 10.00 credits 9.00",
		ErrorStack:   "goroutine 1 [running]:",
		Attempts:     3,
		History: []shared.DeadLetterAttempt{
			{Attempt: 1, Error: "timeout", At: at.Add(-2 * time.Minute)},
			{Attempt: 2, Error: "timeout", At: at.Add(-time.Minute)},
			{Attempt: 3, Error: "UNBALANCED_JOURNAL", At: at},
		},
		Status:    status,
		CreatedAt: at,
	}
}

func TestDeadLetterHandler_List(t *testing.T) {
	t.Run("should list without payloads", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		letter := createTestDeadLetter(shared.DeadLetterOpen)

		deadLetters.On("ListDeadLetters", mock.Anything, shared.DeadLetterFilter{
			TenantID:     testTenantID,
			Status:       shared.DeadLetterOpen,
			ConsumerName: "accounting.tender_posting",
			Page:         2,
		}).Return(&shared.Paginated[*shared.DeadLetter]{
			Items: []*shared.DeadLetter{letter}, Total: 21, Page: 2, PageSize: 20,
		}, nil)

		w := performRequest(router, http.MethodGet, "/dead-letters?status=open&consumer=accounting.tender_posting&page=2", nil)

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var rows []DeadLetterResponse
		decodeData(t, w, &rows)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].Payload)
		assert.Empty(t, rows[0].ErrorStack)
		assert.Len(t, rows[0].History, 3)
		assert.Equal(t, 2, decodeResponse(t, w).Meta.TotalPages)
		deadLetters.AssertExpectations(t)
	})

	t.Run("should reject an unknown status", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()

		w := performRequest(router, http.MethodGet, "/dead-letters?status=closed", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		deadLetters.AssertNotCalled(t, "ListDeadLetters", mock.Anything, mock.Anything)
	})
}

func TestDeadLetterHandler_Get(t *testing.T) {
	t.Run("should include payload and stack", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		letter := createTestDeadLetter(shared.DeadLetterOpen)
		deadLetters.On("GetDeadLetter", mock.Anything, testTenantID, letter.ID).Return(letter, nil)

		w := performRequest(router, http.MethodGet, "/dead-letters/"+letter.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp DeadLetterResponse
		decodeData(t, w, &resp)
		assert.JSONEq(t, `{"tender_id":"T-1001"}`, string(resp.Payload))
		assert.Equal(t, "goroutine 1 [running]:", resp.ErrorStack)
		assert.Equal(t, "2026-03-31T18:05:00Z", resp.History[2].At)
	})

	t.Run("should drop a payload that is not JSON", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		letter := createTestDeadLetter(shared.DeadLetterOpen)
		letter.Payload = []byte("not json")
		deadLetters.On("GetDeadLetter", mock.Anything, testTenantID, letter.ID).Return(letter, nil)

		w := performRequest(router, http.MethodGet, "/dead-letters/"+letter.ID.String(), nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp DeadLetterResponse
		decodeData(t, w, &resp)
		assert.Empty(t, resp.Payload)
	})

	t.Run("should answer 404", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		id := uuid.New()
		deadLetters.On("GetDeadLetter", mock.Anything, testTenantID, id).Return(nil, shared.ErrNotFound)

		w := performRequest(router, http.MethodGet, "/dead-letters/"+id.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDeadLetterHandler_Replay(t *testing.T) {
	t.Run("should replay as the caller", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		letter := createTestDeadLetter(shared.DeadLetterReplayed)
		deadLetters.On("ReplayDeadLetter", mock.Anything, testTenantID, letter.ID, testUserID).Return(letter, nil)

		w := performRequest(router, http.MethodPost, "/dead-letters/"+letter.ID.String()+"/replay", nil)

		require.Equal(t, http.StatusOK, w.Code)
		var resp DeadLetterResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "replayed", resp.Status)
		deadLetters.AssertExpectations(t)
	})

	t.Run("should refuse a resolved letter", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		deadLetters.On("ReplayDeadLetter", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, shared.ErrInvalidState)

		w := performRequest(router, http.MethodPost, "/dead-letters/"+uuid.New().String()+"/replay", nil)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestDeadLetterHandler_Resolve(t *testing.T) {
	t.Run("should record the note", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()
		letter := createTestDeadLetter(shared.DeadLetterResolved)
		by := testUserID
		now := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
		letter.ResolvedBy = &by
		letter.ResolvedAt = &now
		letter.ResolutionNote = "Posted manually"
		deadLetters.On("ResolveDeadLetter", mock.Anything, testTenantID, letter.ID, testUserID, "Posted manually").Return(letter, nil)

		w := performRequest(router, http.MethodPost, "/dead-letters/"+letter.ID.String()+"/resolve",
			ResolveDeadLetterRequest{Note: "Posted manually"})

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp DeadLetterResponse
		decodeData(t, w, &resp)
		assert.Equal(t, "resolved", resp.Status)
		require.NotNil(t, resp.ResolvedAt)
		assert.Equal(t, "2026-04-01T09:00:00Z", *resp.ResolvedAt)
	})

	t.Run("should require a note", func(t *testing.T) {
		router, deadLetters := setupDeadLetterTestRouter()

		w := performRequest(router, http.MethodPost, "/dead-letters/"+uuid.New().String()+"/resolve", map[string]string{})

		assert.Equal(t, http.StatusBadRequest, w.Code)
		deadLetters.AssertNotCalled(t, "ResolveDeadLetter", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
