package models

import "time"

// Contact 联系人表
// 可选字段以空字符串表示缺失；VCardData 与 QRCodeURL 在生成前为 nil，
// 且总是同时写入。
type Contact struct {
	ID        uint      `gorm:"primarykey" json:"id"`            // 主键
	BatchID   string    `gorm:"index;not null" json:"batch_id"`  // 所属批次标识
	Name      string    `gorm:"not null" json:"name"`            // 姓名（唯一必填字段）
	Email     string    `json:"email,omitempty"`                 // 邮箱
	Phone     string    `json:"phone,omitempty"`                 // 主要电话
	Phone2    string    `json:"phone2,omitempty"`                // 备用电话
	Company   string    `json:"company,omitempty"`               // 公司
	Position  string    `json:"position,omitempty"`              // 职位
	Website   string    `json:"website,omitempty"`               // 网站
	Address   string    `json:"address,omitempty"`               // 地址
	City      string    `json:"city,omitempty"`                  // 城市
	State     string    `json:"state,omitempty"`                 // 省/州
	Zipcode   string    `json:"zipcode,omitempty"`               // 邮编
	Country   string    `json:"country,omitempty"`               // 国家
	VCardData *string   `gorm:"column:vcard_data;type:text" json:"vcard_data"`    // vCard 文本（生成后写入）
	QRCodeURL *string   `gorm:"column:qr_code_url;type:text" json:"qr_code_url"`  // 二维码 data URI（生成后写入）
	CreatedAt time.Time `json:"created_at"`                      // 创建时间
	UpdatedAt time.Time `json:"updated_at"`                      // 更新时间
}

// TableName 指定表名
func (Contact) TableName() string {
	return "contacts"
}

// HasArtifacts 判断产物是否已生成
func (c *Contact) HasArtifacts() bool {
	return c != nil && c.VCardData != nil && c.QRCodeURL != nil
}
