package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/qrcard-next/internal/models"

	"gorm.io/gorm"
)

// GormContactRepository 联系人仓库 GORM 实现
type GormContactRepository struct {
	db *gorm.DB
}

// NewContactRepository 创建联系人仓库
func NewContactRepository(db *gorm.DB) *GormContactRepository {
	return &GormContactRepository{db: db}
}

// Create 创建联系人
func (r *GormContactRepository) Create(ctx context.Context, contact *models.Contact) error {
	if contact == nil {
		return errors.New("contact is nil")
	}
	return r.db.WithContext(ctx).Create(contact).Error
}

// CreateBatch 批量创建联系人
func (r *GormContactRepository) CreateBatch(ctx context.Context, contacts []models.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&contacts).Error
}

// GetByID 主键查询联系人；不存在时返回 nil
func (r *GormContactRepository) GetByID(ctx context.Context, id uint) (*models.Contact, error) {
	if id == 0 {
		return nil, errors.New("invalid contact id")
	}
	var contact models.Contact
	if err := r.db.WithContext(ctx).First(&contact, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &contact, nil
}

// ListByBatch 按批次获取联系人列表
func (r *GormContactRepository) ListByBatch(ctx context.Context, batchID string) ([]models.Contact, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	var contacts []models.Contact
	if err := r.db.WithContext(ctx).Where("batch_id = ?", batchID).Order("id").Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

// Update 按字段合并更新联系人；不存在时返回 nil
func (r *GormContactRepository) Update(ctx context.Context, id uint, update ContactUpdate) (*models.Contact, error) {
	if id == 0 {
		return nil, errors.New("invalid contact id")
	}

	values := map[string]interface{}{}
	if update.VCardData != nil {
		values["vcard_data"] = *update.VCardData
	}
	if update.QRCodeURL != nil {
		values["qr_code_url"] = *update.QRCodeURL
	}

	if len(values) > 0 {
		result := r.db.WithContext(ctx).Model(&models.Contact{}).Where("id = ?", id).Updates(values)
		if result.Error != nil {
			return nil, result.Error
		}
		if result.RowsAffected == 0 {
			return nil, nil
		}
	}
	return r.GetByID(ctx, id)
}

// DeleteByBatch 按批次删除联系人
func (r *GormContactRepository) DeleteByBatch(ctx context.Context, batchID string) error {
	if strings.TrimSpace(batchID) == "" {
		return errors.New("invalid batch id")
	}
	return r.db.WithContext(ctx).Where("batch_id = ?", batchID).Delete(&models.Contact{}).Error
}
