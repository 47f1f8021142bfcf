package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/sysu-ecnc-dev/meal-manager/backend/internal/domain"
	"github.com/wneessen/go-mail"
)

type mailTemplate struct {
	file    string
	subject string
}

var mailTemplates = map[string]mailTemplate{
	domain.MailTypeSelectionReminder: {
		file:    "selection_reminder_email.html",
		subject: "ECNC 订餐系统 - 选餐提醒",
	},
}

// buildMessage 根据消息类型选择模板并生成邮件，返回的错误都不值得重试
func buildMessage(body []byte, from string, templateDir string) (*mail.Msg, error) {
	var raw struct {
		Type string          `json:"type"`
		To   string          `json:"to"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	tpl, ok := mailTemplates[raw.Type]
	if !ok {
		return nil, fmt.Errorf("不支持的邮件类型: %s", raw.Type)
	}

	var data any
	switch raw.Type {
	case domain.MailTypeSelectionReminder:
		d := domain.SelectionReminderMailData{}
		if err := json.Unmarshal(raw.Data, &d); err != nil {
			return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
		}
		data = d
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(raw.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}

	tmpl, err := template.ParseFiles(filepath.Join(templateDir, tpl.file))
	if err != nil {
		return nil, fmt.Errorf("无法解析邮件模板: %w", err)
	}
	if err := msg.SetBodyHTMLTemplate(tmpl, data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}
	msg.Subject(tpl.subject)

	return msg, nil
}
