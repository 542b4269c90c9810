package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Repo 泛型文档仓库，封装常用的按 ID 查询、分页查询和更新删除操作
// T 为文档结构体类型，嵌入 Model 后自动维护 ID 和时间戳
type Repo[T any] struct {
	coll *mongo.Collection
}

// NewRepo 创建文档仓库
func NewRepo[T any](db *mongo.Database, collection string) *Repo[T] {
	return &Repo[T]{
		coll: db.Collection(collection),
	}
}

// Collection 返回底层集合，用于仓库未覆盖的高级操作
func (r *Repo[T]) Collection() *mongo.Collection {
	return r.coll
}

// Insert 插入文档
// 文档嵌入了 Model 时自动填充 ID 和时间戳
func (r *Repo[T]) Insert(ctx context.Context, doc *T) error {
	if ts, ok := any(doc).(Timestamped); ok {
		ts.Touch(time.Now())
	}
	if ident, ok := any(doc).(Identifiable); ok && ident.GetID().IsZero() {
		ident.SetID(bson.NewObjectID())
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongo: 插入文档失败: %w", err)
	}
	return nil
}

// FindByID 按十六进制 ID 查询单个文档
func (r *Repo[T]) FindByID(ctx context.Context, id string) (*T, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidObjectID.WithError(err)
	}

	var doc T
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: 查询文档失败: %w", err)
	}
	return &doc, nil
}

// FindOne 按过滤条件查询单个文档
func (r *Repo[T]) FindOne(ctx context.Context, filter bson.M) (*T, error) {
	if filter == nil {
		filter = bson.M{}
	}

	var doc T
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: 查询文档失败: %w", err)
	}
	return &doc, nil
}

// Find 按过滤条件分页查询
// page 从 1 开始，perPage 为每页条数，两者任一小于 1 时使用默认值
func (r *Repo[T]) Find(ctx context.Context, filter bson.M, page, perPage int64) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	skip, limit := paginate(page, perPage)

	opts := options.Find().SetSkip(skip).SetLimit(limit)
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: 查询文档失败: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: 解析查询结果失败: %w", err)
	}
	return docs, nil
}

// FindByIDAndUpdate 按 ID 更新文档并返回更新后的文档
// update 为字段集合，自动包装为 $set 并刷新 updated_at
func (r *Repo[T]) FindByIDAndUpdate(ctx context.Context, id string, update bson.M) (*T, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidObjectID.WithError(err)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	modify := bson.M{
		"$set":         update,
		"$currentDate": bson.M{"updated_at": true},
	}

	var doc T
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, modify, opts).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: 更新文档失败: %w", err)
	}
	return &doc, nil
}

// FindByIDAndDelete 按 ID 删除文档并返回被删除的文档
func (r *Repo[T]) FindByIDAndDelete(ctx context.Context, id string) (*T, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidObjectID.WithError(err)
	}

	var doc T
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("mongo: 删除文档失败: %w", err)
	}
	return &doc, nil
}

// Count 按过滤条件统计文档数
func (r *Repo[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}

	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongo: 统计文档失败: %w", err)
	}
	return n, nil
}

// paginate 计算分页的 skip 和 limit
func paginate(page, perPage int64) (skip, limit int64) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	return (page - 1) * perPage, perPage
}
