package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/qrcard-next/internal/cache"
	"github.com/qrcard-next/internal/config"
	"github.com/qrcard-next/internal/constants"
	"github.com/qrcard-next/internal/logger"
	"github.com/qrcard-next/internal/models"
	"github.com/qrcard-next/internal/queue"
	"github.com/qrcard-next/internal/repository"
	"github.com/qrcard-next/internal/tabular"
	"github.com/qrcard-next/internal/vcard"
)

// QREncoder 二维码编码器接口
type QREncoder interface {
	EncodeDataURI(content string) (string, error)
}

// BatchService 批次管道服务
type BatchService struct {
	store       repository.Store
	queueClient *queue.Client
	qrEncoder   QREncoder
	uploadCfg   config.UploadConfig
	artifactCfg config.ArtifactConfig
}

// NewBatchService 创建批次管道服务
func NewBatchService(store repository.Store, queueClient *queue.Client, qrEncoder QREncoder, uploadCfg config.UploadConfig, artifactCfg config.ArtifactConfig) *BatchService {
	return &BatchService{
		store:       store,
		queueClient: queueClient,
		qrEncoder:   qrEncoder,
		uploadCfg:   uploadCfg,
		artifactCfg: artifactCfg,
	}
}

// IngestInput 上传入库输入
type IngestInput struct {
	FileName string
	Size     int64
	Reader   io.Reader
}

// IngestResult 上传入库结果
type IngestResult struct {
	BatchID       string
	FileName      string
	Headers       []string
	Preview       []map[string]string
	TotalContacts int
}

// GenerateResult 产物生成结果
type GenerateResult struct {
	BatchID        string
	GeneratedCount int
	TotalContacts  int
}

// BatchDetail 批次详情
type BatchDetail struct {
	Batch    *models.Batch
	Contacts []models.Contact
}

// recognizedFields 字段映射允许的目标键
var recognizedFields = map[string]bool{
	constants.ContactFieldName:     true,
	constants.ContactFieldEmail:    true,
	constants.ContactFieldPhone:    true,
	constants.ContactFieldPhone2:   true,
	constants.ContactFieldCompany:  true,
	constants.ContactFieldPosition: true,
	constants.ContactFieldWebsite:  true,
	constants.ContactFieldAddress:  true,
	constants.ContactFieldCity:     true,
	constants.ContactFieldState:    true,
	constants.ContactFieldZipcode:  true,
	constants.ContactFieldCountry:  true,
}

// Ingest 解码上传文件并落库为批次与原始行
func (s *BatchService) Ingest(ctx context.Context, input IngestInput) (*IngestResult, error) {
	ext := strings.ToLower(filepath.Ext(input.FileName))
	if !s.extensionAllowed(ext) {
		return nil, ErrUnsupportedFormat
	}
	if s.uploadCfg.MaxSize > 0 && input.Size > s.uploadCfg.MaxSize {
		return nil, ErrFileTooLarge
	}

	reader := input.Reader
	var counter *countingReader
	if s.uploadCfg.MaxSize > 0 {
		counter = &countingReader{reader: io.LimitReader(reader, s.uploadCfg.MaxSize+1)}
		reader = counter
	}
	dataset, err := tabular.Decode(reader, input.FileName)
	// 申报的 Size 可能小于真实流，按实际读取量兜底拒绝而不是静默截断
	if counter != nil && counter.read > s.uploadCfg.MaxSize {
		return nil, ErrFileTooLarge
	}
	if err != nil {
		if errors.Is(err, tabular.ErrEmptyDataset) {
			return nil, ErrEmptyDataset
		}
		logger.Warnw("upload_decode_failed", "file_name", input.FileName, "error", err)
		return nil, ErrUnsupportedFormat
	}

	batch := &models.Batch{
		BatchID:       uuid.NewString(),
		FileName:      input.FileName,
		TotalContacts: dataset.RowCount(),
		Status:        constants.BatchStatusPending,
	}
	rows := make([]models.BatchRow, 0, dataset.RowCount())
	for i, row := range dataset.Rows {
		rows = append(rows, models.BatchRow{
			BatchID:  batch.BatchID,
			RowIndex: i,
			Fields:   models.StringMap(row),
		})
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Batches().Create(ctx, batch); err != nil {
			return err
		}
		return tx.Rows().CreateBatch(ctx, rows)
	})
	if err != nil {
		logger.Errorw("batch_ingest_failed", "file_name", input.FileName, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logger.Infow("batch_ingested",
		"batch_id", batch.BatchID,
		"file_name", input.FileName,
		"total_contacts", batch.TotalContacts,
	)
	return &IngestResult{
		BatchID:       batch.BatchID,
		FileName:      input.FileName,
		Headers:       dataset.Headers,
		Preview:       dataset.Preview(constants.UploadPreviewRows),
		TotalContacts: batch.TotalContacts,
	}, nil
}

// countingReader 统计实际读取的字节数
type countingReader struct {
	reader io.Reader
	read   int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.reader.Read(p)
	c.read += int64(n)
	return n, err
}

func (s *BatchService) extensionAllowed(ext string) bool {
	if len(s.uploadCfg.AllowedExtensions) == 0 {
		return ext == ".csv" || ext == ".xlsx" || ext == ".xls"
	}
	for _, allowed := range s.uploadCfg.AllowedExtensions {
		if strings.EqualFold(strings.TrimSpace(allowed), ext) {
			return true
		}
	}
	return false
}

// ApplyMapping 设置字段映射并按原始行物化联系人。
// 映射只允许设置一次，整个物化过程在事务内完成。
func (s *BatchService) ApplyMapping(ctx context.Context, batchID string, mapping map[string]string) (*models.Batch, error) {
	if err := validateMapping(mapping); err != nil {
		return nil, err
	}

	batch, err := s.store.Batches().GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	if batch.Status != constants.BatchStatusPending {
		return nil, ErrMappingAlreadySet
	}

	var updated *models.Batch
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		processing := constants.BatchStatusProcessing
		if _, err := tx.Batches().Update(ctx, batchID, repository.BatchUpdate{Status: &processing}); err != nil {
			return err
		}

		rows, err := tx.Rows().ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		contacts := make([]models.Contact, 0, len(rows))
		for _, row := range rows {
			contacts = append(contacts, materializeContact(batchID, mapping, row.Fields))
		}
		if err := tx.Contacts().CreateBatch(ctx, contacts); err != nil {
			return err
		}

		mapped := constants.BatchStatusMapped
		count := len(contacts)
		updated, err = tx.Batches().Update(ctx, batchID, repository.BatchUpdate{
			Status:            &mapped,
			FieldMapping:      models.StringMap(mapping),
			MaterializedCount: &count,
		})
		return err
	})
	if err != nil {
		logger.Errorw("batch_mapping_failed", "batch_id", batchID, "error", err)
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	logger.Infow("batch_mapped", "batch_id", batchID, "materialized_count", updated.MaterializedCount)
	return updated, nil
}

func validateMapping(mapping map[string]string) error {
	if len(mapping) == 0 {
		return ErrInvalidMapping
	}
	for field := range mapping {
		if !recognizedFields[field] {
			return ErrInvalidMapping
		}
	}
	if strings.TrimSpace(mapping[constants.ContactFieldName]) == "" {
		return ErrInvalidMapping
	}
	return nil
}

// materializeContact 按映射从原始行取值，缺列或空单元格保持空串
func materializeContact(batchID string, mapping map[string]string, fields models.StringMap) models.Contact {
	value := func(field string) string {
		header := mapping[field]
		if header == "" {
			return ""
		}
		return strings.TrimSpace(fields[header])
	}
	return models.Contact{
		BatchID:  batchID,
		Name:     value(constants.ContactFieldName),
		Email:    value(constants.ContactFieldEmail),
		Phone:    value(constants.ContactFieldPhone),
		Phone2:   value(constants.ContactFieldPhone2),
		Company:  value(constants.ContactFieldCompany),
		Position: value(constants.ContactFieldPosition),
		Website:  value(constants.ContactFieldWebsite),
		Address:  value(constants.ContactFieldAddress),
		City:     value(constants.ContactFieldCity),
		State:    value(constants.ContactFieldState),
		Zipcode:  value(constants.ContactFieldZipcode),
		Country:  value(constants.ContactFieldCountry),
	}
}

// RequestGeneration 触发产物生成。
// async 且队列可用时投递异步任务，否则同步执行。
func (s *BatchService) RequestGeneration(ctx context.Context, batchID string, origin string, async bool) (bool, *GenerateResult, error) {
	if async && s.queueClient.Enabled() {
		batch, err := s.store.Batches().GetByBatchID(ctx, batchID)
		if err != nil {
			return false, nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if batch == nil {
			return false, nil, ErrBatchNotFound
		}
		payload := queue.BatchGeneratePayload{BatchID: batchID, Origin: origin}
		if err := s.queueClient.EnqueueBatchGenerate(payload); err != nil {
			logger.Errorw("batch_generate_enqueue_failed", "batch_id", batchID, "error", err)
			return false, nil, err
		}
		logger.Infow("batch_generate_enqueued", "batch_id", batchID)
		return true, nil, nil
	}

	result, err := s.GenerateArtifacts(ctx, batchID, origin)
	return false, result, err
}

// GenerateArtifacts 为批次内每个联系人生成 vCard 与二维码。
// 单个联系人失败只记录并跳过，批次仍会完成；
// 重复调用按覆盖语义重新生成。
func (s *BatchService) GenerateArtifacts(ctx context.Context, batchID string, origin string) (*GenerateResult, error) {
	batch, err := s.store.Batches().GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}

	contacts, err := s.store.Contacts().ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if len(contacts) == 0 {
		return nil, ErrNoContacts
	}

	generating := constants.BatchStatusGenerating
	if _, err := s.store.Batches().Update(ctx, batchID, repository.BatchUpdate{Status: &generating}); err != nil {
		return nil, s.failBatch(ctx, batchID, err)
	}

	baseURL := s.resolveOrigin(origin)
	generated := 0
	for i := range contacts {
		contact := &contacts[i]
		vcardText := vcard.Encode(s.buildVCardContact(contact), s.vcardOptions())
		contactURL := baseURL + "/contact/" + strconv.FormatUint(uint64(contact.ID), 10)

		dataURI, err := s.qrEncoder.EncodeDataURI(contactURL)
		if err != nil {
			logger.Warnw("contact_artifact_generate_failed",
				"batch_id", batchID,
				"contact_id", contact.ID,
				"error", err,
			)
			continue
		}
		if _, err := s.store.Contacts().Update(ctx, contact.ID, repository.ContactUpdate{
			VCardData: &vcardText,
			QRCodeURL: &dataURI,
		}); err != nil {
			logger.Warnw("contact_artifact_store_failed",
				"batch_id", batchID,
				"contact_id", contact.ID,
				"error", err,
			)
			continue
		}
		generated++
	}

	completed := constants.BatchStatusCompleted
	if _, err := s.store.Batches().Update(ctx, batchID, repository.BatchUpdate{
		Status:         &completed,
		GeneratedCount: &generated,
	}); err != nil {
		return nil, s.failBatch(ctx, batchID, err)
	}
	if err := cache.Del(ctx, batchDetailCacheKey(batchID)); err != nil {
		logger.Warnw("batch_detail_cache_invalidate_failed", "batch_id", batchID, "error", err)
	}

	logger.Infow("batch_generated",
		"batch_id", batchID,
		"generated_count", generated,
		"total_contacts", batch.TotalContacts,
	)
	return &GenerateResult{
		BatchID:        batchID,
		GeneratedCount: generated,
		TotalContacts:  batch.TotalContacts,
	}, nil
}

// failBatch 生成流程外围的存储故障，批次标记失败
func (s *BatchService) failBatch(ctx context.Context, batchID string, cause error) error {
	failed := constants.BatchStatusFailed
	if _, err := s.store.Batches().Update(ctx, batchID, repository.BatchUpdate{Status: &failed}); err != nil {
		logger.Errorw("batch_fail_mark_failed", "batch_id", batchID, "error", err)
	}
	logger.Errorw("batch_generate_failed", "batch_id", batchID, "error", cause)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, cause)
}

func (s *BatchService) resolveOrigin(origin string) string {
	if base := strings.TrimSpace(s.artifactCfg.PublicBaseURL); base != "" {
		return strings.TrimRight(base, "/")
	}
	return strings.TrimRight(strings.TrimSpace(origin), "/")
}

func (s *BatchService) vcardOptions() vcard.Options {
	return vcard.Options{
		Version:     s.artifactCfg.VCardVersion,
		PhonePrefix: s.artifactCfg.PhonePrefix,
		IncludeUID:  s.artifactCfg.IncludeUID,
	}
}

func (s *BatchService) buildVCardContact(contact *models.Contact) vcard.Contact {
	return vcard.Contact{
		Name:     contact.Name,
		Email:    contact.Email,
		Phone:    contact.Phone,
		Phone2:   contact.Phone2,
		Company:  contact.Company,
		Position: contact.Position,
		Website:  contact.Website,
		Address:  contact.Address,
		City:     contact.City,
		State:    contact.State,
		Zipcode:  contact.Zipcode,
		Country:  contact.Country,
		UID:      strconv.FormatUint(uint64(contact.ID), 10),
	}
}

const batchDetailCacheTTL = 5 * time.Minute

func batchDetailCacheKey(batchID string) string {
	return "batch_detail:" + batchID
}

// GetBatchDetail 获取批次及其联系人。
// 已完成的批次走缓存，生成与清理时失效。
func (s *BatchService) GetBatchDetail(ctx context.Context, batchID string) (*BatchDetail, error) {
	var cached BatchDetail
	if hit, err := cache.GetJSON(ctx, batchDetailCacheKey(batchID), &cached); err != nil {
		logger.Warnw("batch_detail_cache_read_failed", "batch_id", batchID, "error", err)
	} else if hit {
		return &cached, nil
	}

	batch, err := s.store.Batches().GetByBatchID(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if batch == nil {
		return nil, ErrBatchNotFound
	}
	contacts, err := s.store.Contacts().ListByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	detail := &BatchDetail{Batch: batch, Contacts: contacts}
	if batch.Status == constants.BatchStatusCompleted {
		if err := cache.SetJSON(ctx, batchDetailCacheKey(batchID), detail, batchDetailCacheTTL); err != nil {
			logger.Warnw("batch_detail_cache_write_failed", "batch_id", batchID, "error", err)
		}
	}
	return detail, nil
}

// GetContact 按主键获取联系人
func (s *BatchService) GetContact(ctx context.Context, contactID uint) (*models.Contact, error) {
	contact, err := s.store.Contacts().GetByID(ctx, contactID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if contact == nil {
		return nil, ErrContactNotFound
	}
	return contact, nil
}

// DeleteBatchContacts 清理批次下的联系人与原始行
func (s *BatchService) DeleteBatchContacts(ctx context.Context, batchID string) error {
	batch, err := s.store.Batches().GetByBatchID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if batch == nil {
		return ErrBatchNotFound
	}

	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		if err := tx.Contacts().DeleteByBatch(ctx, batchID); err != nil {
			return err
		}
		if err := tx.Rows().DeleteByBatch(ctx, batchID); err != nil {
			return err
		}
		zero := 0
		_, err := tx.Batches().Update(ctx, batchID, repository.BatchUpdate{
			MaterializedCount: &zero,
			GeneratedCount:    &zero,
		})
		return err
	})
	if err != nil {
		logger.Errorw("batch_contacts_delete_failed", "batch_id", batchID, "error", err)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := cache.Del(ctx, batchDetailCacheKey(batchID)); err != nil {
		logger.Warnw("batch_detail_cache_invalidate_failed", "batch_id", batchID, "error", err)
	}
	logger.Infow("batch_contacts_deleted", "batch_id", batchID)
	return nil
}
