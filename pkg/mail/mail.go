package mail

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"

	"github.com/tokmz/lu/pkg/logger"
)

// Message 一封待发送的邮件
type Message struct {
	From    string
	To      []string
	Subject string
	Body    string // HTML 或纯文本正文
}

// Provider 邮件发送后端
type Provider interface {
	Send(ctx context.Context, msg *Message) error
}

// Sender 邮件发送器，支持模板渲染
type Sender struct {
	provider Provider
	from     string
	tmpl     *template.Template
	log      logger.Logger
}

// NewSender 创建邮件发送器
// from 为默认发件人，tmpl 可以为 nil（不使用模板时）
func NewSender(provider Provider, from string, tmpl *template.Template, log logger.Logger) *Sender {
	if log == nil {
		log = logger.Nop()
	}
	return &Sender{
		provider: provider,
		from:     from,
		tmpl:     tmpl,
		log:      log,
	}
}

// Send 发送邮件
func (s *Sender) Send(ctx context.Context, to []string, subject, body string) error {
	msg := &Message{
		From:    s.from,
		To:      to,
		Subject: subject,
		Body:    body,
	}
	if err := s.provider.Send(ctx, msg); err != nil {
		s.log.Error("邮件发送失败",
			zap.Strings("to", to),
			zap.String("subject", subject),
			zap.Error(err),
		)
		return err
	}
	s.log.Info("邮件已发送",
		zap.Strings("to", to),
		zap.String("subject", subject),
	)
	return nil
}

// SendTemplate 渲染命名模板后发送
func (s *Sender) SendTemplate(ctx context.Context, to []string, subject, name string, data any) error {
	if s.tmpl == nil {
		return fmt.Errorf("mail: 未配置模板")
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("mail: 渲染模板 %s 失败: %w", name, err)
	}
	return s.Send(ctx, to, subject, buf.String())
}
