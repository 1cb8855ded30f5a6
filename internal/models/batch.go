package models

import "time"

// Batch 上传批次表
type Batch struct {
	ID                uint      `gorm:"primarykey" json:"id"`                 // 主键
	BatchID           string    `gorm:"uniqueIndex;not null" json:"batch_id"` // 批次标识（上传时生成，不可变）
	FileName          string    `gorm:"not null" json:"file_name"`            // 源文件名
	TotalContacts     int       `gorm:"not null" json:"total_contacts"`       // 上传时的行数
	MaterializedCount int       `gorm:"not null;default:0" json:"materialized_count"` // 已转换为联系人的行数
	GeneratedCount    int       `gorm:"not null;default:0" json:"generated_count"`    // 已生成产物的联系人数
	Status            string    `gorm:"index;not null" json:"status"`         // 批次状态
	FieldMapping      StringMap `gorm:"type:text" json:"field_mapping"`       // 字段映射（仅设置一次）
	CreatedAt         time.Time `gorm:"index" json:"created_at"`              // 创建时间
	UpdatedAt         time.Time `json:"updated_at"`                           // 更新时间
}

// TableName 指定表名
func (Batch) TableName() string {
	return "batches"
}
