package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

// MockBoard
type MockBoard struct {
	mock.Mock
}

func (m *MockBoard) Snapshot() usecase.BoardSnapshot {
	return m.Called().Get(0).(usecase.BoardSnapshot)
}

func (m *MockBoard) Reload(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockCardMutator
type MockCardMutator struct {
	mock.Mock
}

func (m *MockCardMutator) MoveCardFrom(ctx context.Context, cardID string, from, newStage entity.Stage) error {
	return m.Called(ctx, cardID, from, newStage).Error(0)
}

func (m *MockCardMutator) DeleteCardFrom(ctx context.Context, cardID string, from entity.Stage) error {
	return m.Called(ctx, cardID, from).Error(0)
}

// MockLeadCreator
type MockLeadCreator struct {
	mock.Mock
}

func (m *MockLeadCreator) Execute(ctx context.Context, input usecase.CreateLeadInput) (*usecase.CreateLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CreateLeadOutput), args.Error(1)
}

// MockLeadLister
type MockLeadLister struct {
	mock.Mock
}

func (m *MockLeadLister) Execute(ctx context.Context, stages []string) ([]entity.Lead, error) {
	args := m.Called(ctx, stages)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Lead), args.Error(1)
}

type staticFeed []usecase.Notification

func (f staticFeed) Recent() []usecase.Notification { return f }

func boardRouter(board handlers.Board, cards handlers.CardMutator) *chi.Mux {
	h := handlers.NewBoardHandler(board, cards)
	r := chi.NewRouter()
	r.Get("/board", h.GetBoard)
	r.Post("/board/reload", h.Reload)
	r.Patch("/cards/{cardId}/stage", h.MoveCard)
	r.Delete("/cards/{cardId}", h.DeleteCard)
	return r
}

// ============ BOARD ============

func TestGetBoardKeepsStageOrder(t *testing.T) {
	board := new(MockBoard)
	board.On("Snapshot").Return(usecase.BoardSnapshot{
		View:    usecase.ViewGrouped,
		Loading: true,
		Stages: map[entity.Stage][]entity.Card{
			entity.StageFechamento: {entity.NewRawCard(entity.Lead{ID: "l1", Stage: entity.StageFechamento})},
		},
	})

	rec := httptest.NewRecorder()
	boardRouter(board, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/board", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.BoardResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, usecase.ViewGrouped, resp.View)
	assert.True(t, resp.Loading)
	require.Len(t, resp.Stages, 4)
	for i, st := range entity.Stages {
		assert.Equal(t, st, resp.Stages[i].Stage)
		assert.NotNil(t, resp.Stages[i].Cards)
	}
	assert.Equal(t, "Fechamento", resp.Stages[2].Label)
	require.Len(t, resp.Stages[2].Cards, 1)
	assert.Equal(t, "l1", resp.Stages[2].Cards[0].ID)
}

func TestReloadFailureReturnsBadGateway(t *testing.T) {
	board := new(MockBoard)
	board.On("Reload", mock.Anything).Return(&usecase.TechnicalError{Code: "BOARD_RELOAD_FAILED", Message: "timeout"})

	rec := httptest.NewRecorder()
	boardRouter(board, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/board/reload", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "BOARD_RELOAD_FAILED")
	board.AssertNotCalled(t, "Snapshot")
}

func TestMoveCardHandler(t *testing.T) {
	cards := new(MockCardMutator)
	cards.On("MoveCardFrom", mock.Anything, "abc123-sim-s9", entity.Stage(""), entity.StageFechamento).Return(nil)

	body := bytes.NewBufferString(`{"stage":"fechamento"}`)
	rec := httptest.NewRecorder()
	boardRouter(nil, cards).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/cards/abc123-sim-s9/stage", body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cards.AssertExpectations(t)
}

func TestMoveCardHandlerErrors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"json inválido", `{stage`, nil, http.StatusBadRequest},
		{"etapa inválida", `{"stage":"perdido"}`, &usecase.DomainError{Code: "INVALID_STAGE"}, http.StatusBadRequest},
		{"lead inexistente", `{"stage":"fechamento"}`, &usecase.DomainError{Code: "LEAD_NOT_FOUND"}, http.StatusNotFound},
		{"card em duas colunas", `{"stage":"fechamento"}`, &usecase.DomainError{Code: "AMBIGUOUS_CARD"}, http.StatusConflict},
		{"falha do banco", `{"stage":"fechamento"}`, &usecase.TechnicalError{Code: "LEAD_MUTATION_FAILED", Err: errors.New("x")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cards := new(MockCardMutator)
			cards.On("MoveCardFrom", mock.Anything, "l1", mock.Anything, mock.Anything).Return(tt.err)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPatch, "/cards/l1/stage", bytes.NewBufferString(tt.body))
			boardRouter(nil, cards).ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestDeleteCardHandler(t *testing.T) {
	cards := new(MockCardMutator)
	cards.On("DeleteCardFrom", mock.Anything, "lead7-sim-sim3", entity.Stage("")).Return(nil)

	rec := httptest.NewRecorder()
	boardRouter(nil, cards).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cards/lead7-sim-sim3", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cards.AssertExpectations(t)
}

func TestMoveCardHandlerWithFromStage(t *testing.T) {
	cards := new(MockCardMutator)
	cards.On("MoveCardFrom", mock.Anything, "P-facetas", entity.StageFechamento, entity.StageAcompanhamento).Return(nil)

	body := bytes.NewBufferString(`{"stage":"acompanhamento","from_stage":"fechamento"}`)
	rec := httptest.NewRecorder()
	boardRouter(nil, cards).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/cards/P-facetas/stage", body))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cards.AssertExpectations(t)
}

func TestDeleteCardHandlerWithStage(t *testing.T) {
	cards := new(MockCardMutator)
	cards.On("DeleteCardFrom", mock.Anything, "P-facetas", entity.StageSimulacao).Return(nil)

	rec := httptest.NewRecorder()
	boardRouter(nil, cards).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cards/P-facetas?stage=simulacao", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cards.AssertExpectations(t)
}

func TestDeleteCardHandlerAmbiguous(t *testing.T) {
	cards := new(MockCardMutator)
	cards.On("DeleteCardFrom", mock.Anything, "P-facetas", entity.Stage("")).
		Return(&usecase.DomainError{Code: "AMBIGUOUS_CARD", Message: "Informe a etapa do card para concluir a alteração."})

	rec := httptest.NewRecorder()
	boardRouter(nil, cards).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cards/P-facetas", nil))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "AMBIGUOUS_CARD")
}

// ============ LEADS ============

func TestCreateLeadHandler(t *testing.T) {
	creator := new(MockLeadCreator)
	creator.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.CreateLeadInput) bool {
		return in.Name == "Maria Souza" && in.OpportunityValue != nil && in.OpportunityValue.String() == "1500"
	})).Return(&usecase.CreateLeadOutput{ID: "l1", Stage: "simulacao", Msg: "ok"}, nil)

	h := handlers.NewLeadHandler(creator, nil, handlers.NewRateLimiter(10, time.Minute))
	body := bytes.NewBufferString(`{"name":"Maria Souza","phone":"11987654321","opportunity_value":"1500"}`)
	rec := httptest.NewRecorder()
	h.CreateLead(rec, httptest.NewRequest(http.MethodPost, "/leads", body))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"l1"`)
}

func TestCreateLeadHandlerRateLimited(t *testing.T) {
	creator := new(MockLeadCreator)
	creator.On("Execute", mock.Anything, mock.Anything).Return(&usecase.CreateLeadOutput{ID: "l1"}, nil)

	h := handlers.NewLeadHandler(creator, nil, handlers.NewRateLimiter(2, time.Minute))

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/leads", bytes.NewBufferString(`{}`))
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.CreateLead(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	creator.AssertNumberOfCalls(t, "Execute", 2)
}

func TestCreateLeadHandlerValidation(t *testing.T) {
	creator := new(MockLeadCreator)
	creator.On("Execute", mock.Anything, mock.Anything).
		Return(nil, &usecase.DomainError{Code: "VALIDATION_ERROR", Message: "validation failed: name (is required)"})

	h := handlers.NewLeadHandler(creator, nil, nil)
	rec := httptest.NewRecorder()
	h.CreateLead(rec, httptest.NewRequest(http.MethodPost, "/leads", bytes.NewBufferString(`{}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
}

func TestListLeadsHandlerSplitsStages(t *testing.T) {
	lister := new(MockLeadLister)
	lister.On("Execute", mock.Anything, []string{"fechamento", "acompanhamento", "simulacao"}).
		Return([]entity.Lead{{ID: "l1"}}, nil)

	h := handlers.NewLeadHandler(nil, lister, nil)
	rec := httptest.NewRecorder()
	h.ListLeads(rec, httptest.NewRequest(http.MethodGet, "/leads?stage=fechamento,acompanhamento&stage=simulacao", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	lister.AssertExpectations(t)
}

func TestRateLimiterWindowResets(t *testing.T) {
	rl := handlers.NewRateLimiter(1, 50*time.Millisecond)

	assert.True(t, rl.Allow("1.1.1.1"))
	assert.False(t, rl.Allow("1.1.1.1"))
	assert.True(t, rl.Allow("2.2.2.2"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, rl.Allow("1.1.1.1"))
}

// ============ NOTIFICATIONS / HEALTH ============

func TestNotificationHandler(t *testing.T) {
	feed := staticFeed{{Level: usecase.LevelError, Title: "Falha"}}

	rec := httptest.NewRecorder()
	handlers.NewNotificationHandler(feed).List(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Falha")
}

func TestNotificationHandlerEmptyFeed(t *testing.T) {
	rec := httptest.NewRecorder()
	handlers.NewNotificationHandler(staticFeed(nil)).List(rec, httptest.NewRequest(http.MethodGet, "/notifications", nil))

	assert.JSONEq(t, `[]`, rec.Body.String())
}

var _ handlers.BoardStatus = (*usecase.PipelineBoard)(nil)

type loadingBoard bool

func (b loadingBoard) IsLoading() bool { return bool(b) }

func TestHealthWithoutDependencies(t *testing.T) {
	h := handlers.NewHealthHandler(nil, nil, nil, loadingBoard(true))

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.BoardLoading)
	assert.Equal(t, "not configured", resp.Dependencies["database"])
	assert.Equal(t, "not configured", resp.Dependencies["redis"])
}

func TestHealthReportsIdleBoard(t *testing.T) {
	var board handlers.BoardStatus = loadingBoard(false)
	rec := httptest.NewRecorder()
	handlers.NewHealthHandler(nil, nil, nil, board).Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var resp handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.BoardLoading)
}
