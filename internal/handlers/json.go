package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	applog "precifica/internal/log"
)

// User-facing messages are Portuguese; logs stay in English.
const (
	msgUnauthenticated    = "não autenticado"
	msgForbidden          = "acesso negado"
	msgNotFound           = "recurso não encontrado"
	msgInvalidPayload     = "corpo da requisição inválido"
	msgInternalError      = "erro interno, tente novamente"
	msgUnavailable        = "serviço indisponível"
	msgCircularRecipe     = "receita circular: um produto não pode conter a si mesmo, direta ou indiretamente"
	msgInvalidCredentials = "email ou senha inválidos"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func decodeJSON(r *http.Request, dest any) error {
	return json.NewDecoder(r.Body).Decode(dest)
}
