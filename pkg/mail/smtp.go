package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPConfig SMTP 服务器配置
type SMTPConfig struct {
	Host     string // SMTP 服务器地址
	Port     int    // SMTP 端口，默认 587
	Username string
	Password string
}

// SMTPProvider 通过 SMTP 发送邮件
type SMTPProvider struct {
	cfg SMTPConfig
}

// NewSMTPProvider 创建 SMTP 发送后端
func NewSMTPProvider(cfg SMTPConfig) *SMTPProvider {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPProvider{cfg: cfg}
}

// Send 实现 Provider 接口
func (p *SMTPProvider) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", p.cfg.Host, p.cfg.Port)
	var auth smtp.Auth
	if p.cfg.Username != "" {
		auth = smtp.PlainAuth("", p.cfg.Username, p.cfg.Password, p.cfg.Host)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", msg.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)

	if err := smtp.SendMail(addr, auth, msg.From, msg.To, []byte(b.String())); err != nil {
		return fmt.Errorf("mail: SMTP 发送失败: %w", err)
	}
	return nil
}
