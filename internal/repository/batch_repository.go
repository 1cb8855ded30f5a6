package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/qrcard-next/internal/models"

	"gorm.io/gorm"
)

// GormBatchRepository 批次仓库 GORM 实现
type GormBatchRepository struct {
	db *gorm.DB
}

// NewBatchRepository 创建批次仓库
func NewBatchRepository(db *gorm.DB) *GormBatchRepository {
	return &GormBatchRepository{db: db}
}

// Create 创建批次
func (r *GormBatchRepository) Create(ctx context.Context, batch *models.Batch) error {
	if batch == nil {
		return errors.New("batch is nil")
	}
	return r.db.WithContext(ctx).Create(batch).Error
}

// GetByBatchID 按批次标识获取批次；不存在时返回 nil
func (r *GormBatchRepository) GetByBatchID(ctx context.Context, batchID string) (*models.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	var batch models.Batch
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).First(&batch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &batch, nil
}

// Update 按字段合并更新批次；不存在时返回 nil
func (r *GormBatchRepository) Update(ctx context.Context, batchID string, update BatchUpdate) (*models.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}

	values := map[string]interface{}{}
	if update.Status != nil {
		values["status"] = *update.Status
	}
	if update.FieldMapping != nil {
		values["field_mapping"] = update.FieldMapping
	}
	if update.MaterializedCount != nil {
		values["materialized_count"] = *update.MaterializedCount
	}
	if update.GeneratedCount != nil {
		values["generated_count"] = *update.GeneratedCount
	}

	if len(values) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Batch{}).Where("batch_id = ?", batchID).Updates(values)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, nil
		}
	}
	return r.GetByBatchID(ctx, batchID)
}
