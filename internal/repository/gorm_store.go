package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore 基于 GORM 的持久化存储实现
type GormStore struct {
	db       *gorm.DB
	batches  *GormBatchRepository
	contacts *GormContactRepository
	rows     *GormBatchRowRepository
}

// NewGormStore 创建持久化存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:       db,
		batches:  NewBatchRepository(db),
		contacts: NewContactRepository(db),
		rows:     NewBatchRowRepository(db),
	}
}

// Batches 批次仓库
func (s *GormStore) Batches() BatchRepository {
	return s.batches
}

// Contacts 联系人仓库
func (s *GormStore) Contacts() ContactRepository {
	return s.contacts
}

// Rows 原始行仓库
func (s *GormStore) Rows() BatchRowRepository {
	return s.rows
}

// Transaction 在数据库事务中执行 fn
func (s *GormStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if fn == nil {
		return errors.New("transaction fn is nil")
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStore(tx))
	})
}
