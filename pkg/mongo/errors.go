package mongo

import "github.com/tokmz/lu/pkg/errors"

// 文档存储包专用错误定义
var (
	// ErrInvalidObjectID 非法的文档 ID
	ErrInvalidObjectID = errors.New(4001, "非法的文档 ID", 400)
	// ErrNotFound 文档不存在
	ErrNotFound = errors.New(4002, "文档不存在", 404)
	// ErrAliasExists 连接别名已存在
	ErrAliasExists = errors.New(4003, "连接别名已存在", 500)
	// ErrAliasNotFound 连接别名不存在
	ErrAliasNotFound = errors.New(4004, "连接别名不存在", 500)
)
