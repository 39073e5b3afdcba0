package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xavierca1/ligue-pipeline/internal/entity"
	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type Board interface {
	Snapshot() usecase.BoardSnapshot
	Reload(ctx context.Context) error
}

type CardMutator interface {
	MoveCardFrom(ctx context.Context, cardID string, from, newStage entity.Stage) error
	DeleteCardFrom(ctx context.Context, cardID string, from entity.Stage) error
}

type BoardHandler struct {
	Board Board
	Cards CardMutator
}

func NewBoardHandler(board Board, cards CardMutator) *BoardHandler {
	return &BoardHandler{Board: board, Cards: cards}
}

type StageColumn struct {
	Stage entity.Stage  `json:"stage"`
	Label string        `json:"label"`
	Cards []entity.Card `json:"cards"`
}

type BoardResponse struct {
	View    usecase.View  `json:"view"`
	Loading bool          `json:"loading"`
	Stages  []StageColumn `json:"stages"`
}

// FromStage é a coluna onde o card está. Só é exigida quando o mesmo id de
// grupo aparece em mais de uma coluna.
type MoveCardRequest struct {
	Stage     string `json:"stage"`
	FromStage string `json:"from_stage,omitempty"`
}

// GetBoard (GET /board) devolve as colunas sempre na ordem do funil.
func (h *BoardHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	snap := h.Board.Snapshot()

	resp := BoardResponse{
		View:    snap.View,
		Loading: snap.Loading,
		Stages:  make([]StageColumn, 0, len(entity.Stages)),
	}
	for _, st := range entity.Stages {
		cards := snap.Stages[st]
		if cards == nil {
			cards = []entity.Card{}
		}
		resp.Stages = append(resp.Stages, StageColumn{Stage: st, Label: st.Label(), Cards: cards})
	}

	writeJSON(w, http.StatusOK, resp)
}

// Reload (POST /board/reload)
func (h *BoardHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.Board.Reload(r.Context()); err != nil {
		writeUseCaseError(w, err)
		return
	}
	h.GetBoard(w, r)
}

// MoveCard (PATCH /cards/{cardId}/stage)
func (h *BoardHandler) MoveCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardId")

	var req MoveCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "INVALID_JSON", Message: "JSON inválido: " + err.Error()})
		return
	}

	if err := h.Cards.MoveCardFrom(r.Context(), cardID, entity.Stage(req.FromStage), entity.Stage(req.Stage)); err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteCard (DELETE /cards/{cardId}?stage=)
func (h *BoardHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := chi.URLParam(r, "cardId")
	from := entity.Stage(r.URL.Query().Get("stage"))

	if err := h.Cards.DeleteCardFrom(r.Context(), cardID, from); err != nil {
		writeUseCaseError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
