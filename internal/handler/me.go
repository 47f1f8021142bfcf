package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/utils"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

func (h *Handler) GetMyRegistrations(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	dateRange, err := utils.ParseDateRangeParams(r.URL.Query())
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	registrations, err := h.services.Registrations.GetUserRegistrations(r.Context(), myInfo.ID, dateRange)
	if err != nil {
		h.serviceError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取我的用餐登记成功", registrations)
}

// RegenerateMyQRToken 生成新的二维码令牌，旧令牌立即失效
func (h *Handler) RegenerateMyQRToken(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	oldToken := myInfo.QRToken

	newToken, err := utils.GenerateQRToken()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	updated := *myInfo
	updated.QRToken = newToken
	if err := h.users.UpdateUserQRToken(r.Context(), &updated); err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// 版本号不一致，说明令牌刚刚被别的请求更新过
			h.errorResponse(w, r, http.StatusConflict, codeConflict, "二维码已被更新，请刷新后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if h.services.TokenCache != nil {
		if err := h.services.TokenCache.Invalidate(r.Context(), oldToken); err != nil {
			// 清除失败时旧令牌最多在缓存过期前仍然可用
			slog.Warn("无法清除旧二维码令牌的缓存", "requestID", requestIDFrom(r), "userID", updated.ID, "error", err)
		}
	}

	h.successResponse(w, r, "二维码已重新生成", &updated)
}
