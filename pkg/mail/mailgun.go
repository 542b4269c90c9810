package mail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// MailgunConfig Mailgun API 配置
type MailgunConfig struct {
	Domain  string        // Mailgun 域名
	APIKey  string        // API 私钥
	BaseURL string        // API 地址，默认 https://api.mailgun.net/v3
	Timeout time.Duration // 请求超时，默认 10 秒
}

// MailgunProvider 通过 Mailgun HTTP API 发送邮件
type MailgunProvider struct {
	cfg    MailgunConfig
	client *http.Client
}

// NewMailgunProvider 创建 Mailgun 发送后端
func NewMailgunProvider(cfg MailgunConfig) *MailgunProvider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mailgun.net/v3"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &MailgunProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Send 实现 Provider 接口
func (p *MailgunProvider) Send(ctx context.Context, msg *Message) error {
	form := url.Values{}
	form.Set("from", msg.From)
	for _, to := range msg.To {
		form.Add("to", to)
	}
	form.Set("subject", msg.Subject)
	form.Set("html", msg.Body)

	endpoint := fmt.Sprintf("%s/%s/messages", p.cfg.BaseURL, p.cfg.Domain)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("mail: 构建 Mailgun 请求失败: %w", err)
	}
	req.SetBasicAuth("api", p.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("mail: Mailgun 请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("mail: Mailgun 返回 %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
