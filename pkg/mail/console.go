package mail

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// ConsoleProvider 把邮件打印到终端，用于本地开发
type ConsoleProvider struct {
	out io.Writer
}

// NewConsoleProvider 创建终端输出后端
// out 为 nil 时输出到 stdout
func NewConsoleProvider(out io.Writer) *ConsoleProvider {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleProvider{out: out}
}

// Send 实现 Provider 接口
func (p *ConsoleProvider) Send(ctx context.Context, msg *Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintln(p.out, "---------- mail ----------")
	fmt.Fprintf(p.out, "From: %s\n", msg.From)
	fmt.Fprintf(p.out, "To: %s\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(p.out, "Subject: %s\n", msg.Subject)
	fmt.Fprintln(p.out)
	fmt.Fprintln(p.out, msg.Body)
	fmt.Fprintln(p.out, "--------------------------")
	return nil
}
