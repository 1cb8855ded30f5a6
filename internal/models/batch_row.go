package models

import "time"

// BatchRow 上传批次的原始行数据表
// 在上传时落库，映射步骤按批次重新读取，无需调用方重传数据集。
type BatchRow struct {
	ID        uint      `gorm:"primarykey" json:"id"`           // 主键
	BatchID   string    `gorm:"index;not null" json:"batch_id"` // 所属批次标识
	RowIndex  int       `gorm:"not null" json:"row_index"`      // 源文件中的行序号（0 起）
	Fields    StringMap `gorm:"type:text" json:"fields"`        // 列名 -> 单元格值
	CreatedAt time.Time `json:"created_at"`                     // 创建时间
}

// TableName 指定表名
func (BatchRow) TableName() string {
	return "batch_rows"
}
