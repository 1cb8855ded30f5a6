package repository

import (
	"context"

	"github.com/qrcard-next/internal/models"
)

// BatchUpdate 批次部分更新字段（nil 表示不修改）。
// 同一批次的并发更新按字段后写覆盖，存储层不做乐观并发检查。
type BatchUpdate struct {
	Status            *string
	FieldMapping      models.StringMap
	MaterializedCount *int
	GeneratedCount    *int
}

// ContactUpdate 联系人部分更新字段（nil 表示不修改）。
// 产物生成总是同时写入 VCardData 与 QRCodeURL。
type ContactUpdate struct {
	VCardData *string
	QRCodeURL *string
}

// BatchRepository 批次数据访问接口
type BatchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	GetByBatchID(ctx context.Context, batchID string) (*models.Batch, error)
	Update(ctx context.Context, batchID string, update BatchUpdate) (*models.Batch, error)
}

// ContactRepository 联系人数据访问接口
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	CreateBatch(ctx context.Context, contacts []models.Contact) error
	GetByID(ctx context.Context, id uint) (*models.Contact, error)
	ListByBatch(ctx context.Context, batchID string) ([]models.Contact, error)
	Update(ctx context.Context, id uint, update ContactUpdate) (*models.Contact, error)
	DeleteByBatch(ctx context.Context, batchID string) error
}

// BatchRowRepository 原始行数据访问接口
type BatchRowRepository interface {
	CreateBatch(ctx context.Context, rows []models.BatchRow) error
	ListByBatch(ctx context.Context, batchID string) ([]models.BatchRow, error)
	DeleteByBatch(ctx context.Context, batchID string) error
}

// Store 聚合存储入口。管道层只依赖该接口，
// GORM 与内存两种实现对上述全部操作保持相同的可观测行为。
type Store interface {
	Batches() BatchRepository
	Contacts() ContactRepository
	Rows() BatchRowRepository
	// Transaction 在单个事务中执行 fn；任一步出错则整体回滚
	Transaction(ctx context.Context, fn func(Store) error) error
}
