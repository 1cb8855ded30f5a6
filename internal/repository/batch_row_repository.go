package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/qrcard-next/internal/models"

	"gorm.io/gorm"
)

// GormBatchRowRepository 原始行仓库 GORM 实现
type GormBatchRowRepository struct {
	db *gorm.DB
}

// NewBatchRowRepository 创建原始行仓库
func NewBatchRowRepository(db *gorm.DB) *GormBatchRowRepository {
	return &GormBatchRowRepository{db: db}
}

// CreateBatch 批量写入原始行
func (r *GormBatchRowRepository) CreateBatch(ctx context.Context, rows []models.BatchRow) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// ListByBatch 按批次获取原始行，按行序号排序
func (r *GormBatchRowRepository) ListByBatch(ctx context.Context, batchID string) ([]models.BatchRow, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	var rows []models.BatchRow
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("row_index").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByBatch 按批次删除原始行
func (r *GormBatchRowRepository) DeleteByBatch(ctx context.Context, batchID string) error {
	if strings.TrimSpace(batchID) == "" {
		return errors.New("invalid batch id")
	}
	return r.db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(&models.BatchRow{}).Error
}
