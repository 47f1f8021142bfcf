package domain

const MailTypeSelectionReminder = "selection_reminder"

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type SelectionReminderMailData struct {
	FullName  string `json:"fullName"`
	WeekStart string `json:"weekStart"`
	WeekEnd   string `json:"weekEnd"`
}
