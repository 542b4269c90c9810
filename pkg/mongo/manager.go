package mongo

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Manager 管理多个命名的 MongoDB 连接
// 第一个注册的连接作为默认连接
type Manager struct {
	mu      sync.RWMutex
	clients map[string]*client
	order   []string
}

type client struct {
	cli *mongo.Client
	db  *mongo.Database
}

// NewManager 创建连接管理器
func NewManager() *Manager {
	return &Manager{
		clients: make(map[string]*client),
	}
}

// Connect 按别名建立连接并验证连通性
func (m *Manager) Connect(ctx context.Context, alias string, cfg *Config) error {
	if cfg == nil || cfg.URI == "" {
		return fmt.Errorf("mongo: URI 不能为空")
	}
	cfg.setDefaults()

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[alias]; ok {
		return ErrAliasExists.WithMessage(fmt.Sprintf("连接别名 %s 已存在", alias))
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout)
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	if cfg.MinPoolSize > 0 {
		opts.SetMinPoolSize(cfg.MinPoolSize)
	}
	if cfg.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}

	cli, err := mongo.Connect(opts)
	if err != nil {
		return fmt.Errorf("mongo: 连接失败: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := cli.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return fmt.Errorf("mongo: 连通性检查失败: %w", err)
	}

	m.clients[alias] = &client{
		cli: cli,
		db:  cli.Database(cfg.Database),
	}
	m.order = append(m.order, alias)
	return nil
}

// DB 获取数据库实例
// 不传别名时返回默认连接（第一个注册的连接）
func (m *Manager) DB(alias ...string) (*mongo.Database, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name := ""
	if len(alias) > 0 {
		name = alias[0]
	} else if len(m.order) > 0 {
		name = m.order[0]
	}

	c, ok := m.clients[name]
	if !ok {
		return nil, ErrAliasNotFound.WithMessage(fmt.Sprintf("连接别名 %s 不存在", name))
	}
	return c.db, nil
}

// Client 获取底层客户端实例
func (m *Manager) Client(alias ...string) (*mongo.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name := ""
	if len(alias) > 0 {
		name = alias[0]
	} else if len(m.order) > 0 {
		name = m.order[0]
	}

	c, ok := m.clients[name]
	if !ok {
		return nil, ErrAliasNotFound.WithMessage(fmt.Sprintf("连接别名 %s 不存在", name))
	}
	return c.cli, nil
}

// Close 断开所有连接
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for alias, c := range m.clients {
		if err := c.cli.Disconnect(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("mongo: 断开连接 %s 失败: %w", alias, err)
		}
	}
	m.clients = make(map[string]*client)
	m.order = nil
	return firstErr
}
