// Package httpapi — HTTP-транспорт сервиса: ответы, middleware, аутентификация по initData.
// Маршруты фич регистрируются в app, здесь только общая обвязка.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/stars-casino/internal/common"
)

// Коды ошибок в теле ответа.
const (
	CodeUnauthenticated     = "UNAUTHENTICATED"
	CodeValidation          = "VALIDATION_ERROR"
	CodeForbidden           = "FORBIDDEN"
	CodeAccountBanned       = "ACCOUNT_BANNED"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeNotFound            = "NOT_FOUND"
	CodePaymentsUnavailable = "PAYMENTS_UNAVAILABLE"
	CodeInternal            = "INTERNAL_ERROR"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrorBody — тело ответа с ошибкой.
type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// RespondJSON пишет JSON с кодом status.
func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// RespondOK добавляет "success": true к полям ответа.
func RespondOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	RespondJSON(w, http.StatusOK, body)
}

// classify сопоставляет ошибке HTTP-статус и код.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		return http.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, common.ErrInvalidStake),
		errors.Is(err, common.ErrInvalidDepositTier),
		errors.Is(err, common.ErrInvalidAmount):
		return http.StatusBadRequest, CodeValidation
	case errors.Is(err, common.ErrAccountBanned):
		return http.StatusForbidden, CodeAccountBanned
	case errors.Is(err, common.ErrNotAdmin):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, common.ErrInsufficientBalance):
		return http.StatusPaymentRequired, CodeInsufficientBalance
	case errors.Is(err, common.ErrUserNotFound), errors.Is(err, common.ErrDepositNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, common.ErrPaymentsUnavailable):
		return http.StatusServiceUnavailable, CodePaymentsUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

// RespondError переводит ошибку в ответ. Текст внутренних ошибок клиенту не отдаётся.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	message := err.Error()
	if status == http.StatusInternalServerError {
		log.WithFields(log.Fields{
			"path":       r.URL.Path,
			"request_id": GetRequestID(r.Context()),
		}).WithError(err).Error("Ошибка обработки запроса")
		message = "внутренняя ошибка сервера"
	}

	RespondJSON(w, status, ErrorBody{Success: false, Error: code, Message: message})
}

// DecodeJSON читает тело запроса в dst и проверяет теги validate.
// Любая ошибка разбора или валидации оборачивает common.ErrInvalidAmount.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: некорректный JSON", common.ErrInvalidAmount)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", common.ErrInvalidAmount, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", common.ErrInvalidAmount, err)
	}
	return nil
}
