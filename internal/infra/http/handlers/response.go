package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xavierca1/ligue-pipeline/internal/usecase"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// writeUseCaseError traduz os erros dos use cases para HTTP.
// Erro de domínio é culpa de quem chamou, erro técnico é do banco ou do broker.
func writeUseCaseError(w http.ResponseWriter, err error) {
	var de *usecase.DomainError
	if errors.As(err, &de) {
		status := http.StatusBadRequest
		switch de.Code {
		case "CARD_NOT_FOUND", "LEAD_NOT_FOUND":
			status = http.StatusNotFound
		case "LEAD_ALREADY_EXISTS", "AMBIGUOUS_CARD":
			status = http.StatusConflict
		}
		writeJSON(w, status, ErrorResponse{Code: de.Code, Message: de.Message})
		return
	}

	var te *usecase.TechnicalError
	if errors.As(err, &te) {
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Code: te.Code, Message: te.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Code: "INTERNAL_ERROR", Message: err.Error()})
}
