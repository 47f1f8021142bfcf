package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/config"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/service"
)

// UserStore 是登录、获取个人信息以及轮换二维码令牌所需的账户目录
type UserStore interface {
	GetUserByID(ctx context.Context, id int64) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateUserQRToken(ctx context.Context, user *domain.User) error
}

// TokenCache 在令牌轮换后清除旧令牌的身份缓存
type TokenCache interface {
	Invalidate(ctx context.Context, token string) error
}

type Services struct {
	Selections    *service.SelectionService
	Registrations *service.RegistrationService
	Reports       *service.ReportService
	Reminders     *service.ReminderService
	TokenCache    TokenCache
}

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	users      UserStore
	translator ut.Translator
	services   Services

	// MetricsHandler 默认为 promhttp.Handler()，测试中可以替换
	MetricsHandler http.Handler

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, users UserStore, services Services) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		users:      users,
		translator: trans,
		services:   services,

		MetricsHandler: promhttp.Handler(),

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.requestID)
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Method(http.MethodGet, "/metrics", h.MetricsHandler)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	adminOnly := h.RequiredRole([]domain.Role{domain.RoleAdmin})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.myInfo)
		r.Use(h.preventInactiveUser)

		r.Route("/my-info", func(r chi.Router) {
			r.Get("/", h.GetMyInfo)
			r.Get("/registrations", h.GetMyRegistrations)
			r.Post("/qr-token", h.RegenerateMyQRToken)
		})

		r.Route("/weekly-selections", func(r chi.Router) {
			r.Post("/", h.SubmitWeeklySelections)
			r.Get("/", h.GetWeeklySelections)
			r.Get("/available-menus", h.GetAvailableMenus)
			r.With(adminOnly).Get("/users-without-selection", h.GetUsersWithoutSelection)
			r.With(adminOnly).Get("/statistics", h.GetSelectionStatistics)
			r.With(adminOnly).Post("/reminders", h.SendSelectionReminders)
		})

		r.Route("/meals", func(r chi.Router) {
			r.Post("/register", h.RegisterMeal)
			r.Post("/verify-qr", h.VerifyQRCode)
			r.Post("/scan-and-register", h.ScanAndRegister)
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/daily", h.GetDailyRegistrations)
				r.Get("/weekly", h.GetWeeklyRegistrations)
				r.Get("/users/{id}", h.GetUserRegistrations)
				r.Get("/stats", h.GetRegistrationStats)
			})
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(adminOnly)
			r.Get("/", h.GetReport)
			r.Get("/daily", h.GetDailyReport)
		})
	})
}
