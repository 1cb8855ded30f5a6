package service

import "errors"

// 业务错误定义
var (
	// ErrUnsupportedFormat 文件格式不支持
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileTooLarge 文件超出大小限制
	ErrFileTooLarge = errors.New("file too large")
	// ErrEmptyDataset 文件没有可用数据
	ErrEmptyDataset = errors.New("empty dataset")
	// ErrBatchNotFound 批次不存在
	ErrBatchNotFound = errors.New("batch not found")
	// ErrContactNotFound 联系人不存在
	ErrContactNotFound = errors.New("contact not found")
	// ErrInvalidMapping 字段映射不合法
	ErrInvalidMapping = errors.New("invalid field mapping")
	// ErrMappingAlreadySet 字段映射已设置
	ErrMappingAlreadySet = errors.New("field mapping already set")
	// ErrNoContacts 批次下没有联系人
	ErrNoContacts = errors.New("no contacts in batch")
	// ErrArtifactNotGenerated 产物尚未生成
	ErrArtifactNotGenerated = errors.New("artifact not generated")
	// ErrStoreUnavailable 存储不可用
	ErrStoreUnavailable = errors.New("store unavailable")
)
