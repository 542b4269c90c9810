package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Model 文档模型基础字段，嵌入到业务文档结构体中：
//
//	type Message struct {
//		mongo.Model `bson:",inline"`
//		Text        string `bson:"text" json:"text"`
//	}
type Model struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at"`
}

// GetID 返回文档 ID
func (m *Model) GetID() bson.ObjectID {
	return m.ID
}

// SetID 设置文档 ID
func (m *Model) SetID(id bson.ObjectID) {
	m.ID = id
}

// Touch 更新时间戳，首次写入时同时填充创建时间
func (m *Model) Touch(now time.Time) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}

// Identifiable 可标识文档接口，由 Model 实现
type Identifiable interface {
	GetID() bson.ObjectID
	SetID(id bson.ObjectID)
}

// Timestamped 带时间戳文档接口，由 Model 实现
type Timestamped interface {
	Touch(now time.Time)
}
