package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// maxBodyBytes ограничение размера тела запроса
const maxBodyBytes = 1 << 20

// RespondWithJSON отправляет JSON ответ с указанным статус кодом
func RespondWithJSON(w http.ResponseWriter, r *http.Request, statusCode int, data interface{}) {
	render.Status(r, statusCode)
	render.JSON(w, r, data)
}

// decodeBody читает JSON тело запроса. При ошибке отправляет 400 и возвращает false.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return false
	}
	return true
}
