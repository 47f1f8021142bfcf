package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
)

const (
	codeUnauthorized  = "UNAUTHORIZED"
	codeForbidden     = "FORBIDDEN"
	codeConflict      = "CONFLICT"
	codeInternalError = "INTERNAL_ERROR"

	internalErrorMessage = "服务器内部错误，请稍后重试"
)

// 最大请求体大小
const maxBodyBytes = 1 << 20

var rejectionStatus = map[domain.Code]int{
	domain.CodeInvalidInput:          http.StatusBadRequest,
	domain.CodeNotFound:              http.StatusNotFound,
	domain.CodeOutsideWindow:         http.StatusForbidden,
	domain.CodeInvalidMenuReference:  http.StatusBadRequest,
	domain.CodeMenuNotToday:          http.StatusBadRequest,
	domain.CodeInvalidMenuOrNotToday: http.StatusBadRequest,
	domain.CodeAlreadyRegistered:     http.StatusConflict,
	domain.CodeInvalidToken:          http.StatusNotFound,
	domain.CodeReminderAlreadySent:   http.StatusConflict,
}

func (h *Handler) logInternalServerError(r *http.Request, err error) {
	slog.Error("服务器内部错误", "requestID", requestIDFrom(r), "method", r.Method, "path", r.URL.Path, "error", err)
}

func (h *Handler) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("请求体不是合法的 JSON 或包含未知字段")
	}
	return nil
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logInternalServerError(r, err)
	}
}

type Response struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *Handler) errorResponse(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	h.writeJSON(w, r, status, Response{
		Success: false,
		Code:    code,
		Message: msg,
		Data:    nil,
	})
}

func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		h.errorResponse(w, r, http.StatusBadRequest, string(domain.CodeInvalidInput), err.Error())
		return
	}

	h.errorResponse(w, r, http.StatusBadRequest, string(domain.CodeInvalidInput), validationErrors[0].Translate(h.translator))
}

func (h *Handler) unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusUnauthorized, codeUnauthorized, msg)
}

func (h *Handler) forbidden(w http.ResponseWriter, r *http.Request, msg string) {
	h.errorResponse(w, r, http.StatusForbidden, codeForbidden, msg)
}

func (h *Handler) internalServerError(w http.ResponseWriter, r *http.Request, err error) {
	h.logInternalServerError(r, err)
	h.errorResponse(w, r, http.StatusInternalServerError, codeInternalError, internalErrorMessage)
}

// rejectionResponse 把业务拒绝映射为稳定的错误码和 HTTP 状态码
func (h *Handler) rejectionResponse(w http.ResponseWriter, r *http.Request, rej *domain.Rejection) {
	status, ok := rejectionStatus[rej.Code]
	if !ok {
		status = http.StatusBadRequest
	}

	code := string(rej.Code)
	if rej.Reason != "" {
		code = rej.Reason
	}

	var data any
	if rej.MenuItemID != 0 {
		data = map[string]int64{"menuItemID": rej.MenuItemID}
	}

	h.writeJSON(w, r, status, Response{
		Success: false,
		Code:    code,
		Message: rej.Message,
		Data:    data,
	})
}

// serviceError 处理 service 返回的错误：业务拒绝原样告知调用方，其余错误只记录日志
func (h *Handler) serviceError(w http.ResponseWriter, r *http.Request, err error) {
	if rej, ok := domain.AsRejection(err); ok {
		h.rejectionResponse(w, r, rej)
		return
	}
	h.internalServerError(w, r, err)
}

func (h *Handler) successResponse(w http.ResponseWriter, r *http.Request, msg string, data any) {
	h.writeJSON(w, r, http.StatusOK, Response{
		Success: true,
		Message: msg,
		Data:    data,
	})
}
