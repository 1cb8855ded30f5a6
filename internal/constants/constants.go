package constants

// 批次状态常量
const (
	BatchStatusPending    = "pending"
	BatchStatusProcessing = "processing"
	BatchStatusMapped     = "mapped"
	BatchStatusGenerating = "generating"
	BatchStatusCompleted  = "completed"
	BatchStatusFailed     = "failed"
)

// 联系人字段常量（字段映射的目标键）
const (
	ContactFieldName     = "name"
	ContactFieldEmail    = "email"
	ContactFieldPhone    = "phone"
	ContactFieldPhone2   = "phone2"
	ContactFieldCompany  = "company"
	ContactFieldPosition = "position"
	ContactFieldWebsite  = "website"
	ContactFieldAddress  = "address"
	ContactFieldCity     = "city"
	ContactFieldState    = "state"
	ContactFieldZipcode  = "zipcode"
	ContactFieldCountry  = "country"
)

// 队列常量
const (
	QueueDefault      = "default"
	TaskBatchGenerate = "batch:generate"
)

// UploadPreviewRows 上传预览返回的最大行数
const UploadPreviewRows = 5
