package service

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/clock"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/metrics"
)

const reminderKeyPrefix = "selection_reminder:"

type ReminderService struct {
	calendar   *clock.Calendar
	selections SelectionStore
	guard      ReminderGuard
	publisher  MailPublisher
	guardTTL   time.Duration
	metrics    *metrics.Metrics
}

func NewReminderService(calendar *clock.Calendar, selections SelectionStore, guard ReminderGuard, publisher MailPublisher, guardTTL time.Duration, m *metrics.Metrics) *ReminderService {
	return &ReminderService{
		calendar:   calendar,
		selections: selections,
		guard:      guard,
		publisher:  publisher,
		guardTTL:   guardTTL,
		metrics:    m,
	}
}

func ReminderKey(date time.Time) string {
	return reminderKeyPrefix + date.Format(domain.DateLayout)
}

// SendSelectionReminders 给下一周还没有选餐的员工各发一封提醒邮件，每天只能发送一次，返回放入队列的邮件数
func (s *ReminderService) SendSelectionReminders(ctx context.Context) (queued int, err error) {
	defer func(start time.Time) { observe(s.metrics, "send_selection_reminders", start, err) }(time.Now())

	week := s.calendar.UpcomingWeek()
	users, err := s.selections.ListUsersWithoutSelection(ctx, week)
	if err != nil {
		return 0, domain.StorageFailure("list users without selection", err)
	}

	key := ReminderKey(s.calendar.Today())
	acquired, err := s.guard.Acquire(ctx, key, s.guardTTL)
	if err != nil {
		return 0, domain.StorageFailure("acquire reminder guard", err)
	}
	if !acquired {
		return 0, domain.ErrReminderAlreadySent
	}

	for _, user := range users {
		if user.Email == "" {
			continue
		}

		msg := domain.MailMessage{
			Type: domain.MailTypeSelectionReminder,
			To:   user.Email,
			Data: domain.SelectionReminderMailData{
				FullName:  user.DisplayName(),
				WeekStart: week.Start.Format(domain.DateLayout),
				WeekEnd:   week.End.Format(domain.DateLayout),
			},
		}
		if err := s.publisher.Publish(ctx, msg); err != nil {
			// 一封都没发出去时释放标记，允许管理员重试；已经发出部分邮件则不能重试，否则会重复发送
			if queued == 0 {
				_ = s.guard.Release(ctx, key)
			}
			s.metrics.AddRemindersQueued(queued)
			return queued, domain.StorageFailure("publish reminder", err)
		}
		queued++
	}

	s.metrics.AddRemindersQueued(queued)
	return queued, nil
}
