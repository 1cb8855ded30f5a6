package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/qrcard-next/internal/config"
	"github.com/qrcard-next/internal/constants"
	"github.com/qrcard-next/internal/models"
	"github.com/qrcard-next/internal/qrimg"
	"github.com/qrcard-next/internal/queue"
	"github.com/qrcard-next/internal/repository"
)

const sampleCSV = "Full Name,Mail,Mobile\nAlice Zhang,alice@example.com,13800138000\nBob Li,bob@example.com,13900139000\n"

func testUploadConfig() config.UploadConfig {
	return config.UploadConfig{
		MaxSize:           1024 * 1024,
		AllowedExtensions: []string{".csv", ".xlsx", ".xls"},
	}
}

func testArtifactConfig() config.ArtifactConfig {
	return config.ArtifactConfig{
		PublicBaseURL: "https://cards.example.com",
		QRSize:        128,
		QRLevel:       "medium",
		VCardVersion:  "3.0",
		IncludeUID:    true,
	}
}

func newTestBatchService(t *testing.T, qrEncoder QREncoder) (*BatchService, repository.Store) {
	t.Helper()
	store := repository.NewMemoryStore()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	if qrEncoder == nil {
		qrEncoder = qrimg.NewEncoder(128, "medium")
	}
	svc := NewBatchService(store, queueClient, qrEncoder, testUploadConfig(), testArtifactConfig())
	return svc, store
}

func ingestSampleCSV(t *testing.T, svc *BatchService) *IngestResult {
	t.Helper()
	result, err := svc.Ingest(context.Background(), IngestInput{
		FileName: "contacts.csv",
		Size:     int64(len(sampleCSV)),
		Reader:   strings.NewReader(sampleCSV),
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	return result
}

func sampleMapping() map[string]string {
	return map[string]string{
		constants.ContactFieldName:  "Full Name",
		constants.ContactFieldEmail: "Mail",
		constants.ContactFieldPhone: "Mobile",
	}
}

type failingQREncoder struct {
	failAt  int
	current int
}

func (e *failingQREncoder) EncodeDataURI(content string) (string, error) {
	e.current++
	if e.current == e.failAt {
		return "", errors.New("forced encoder failure")
	}
	return qrimg.NewEncoder(64, "low").EncodeDataURI(content)
}

func TestIngest(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)

	if result.BatchID == "" {
		t.Fatalf("expected a batch id")
	}
	if result.TotalContacts != 2 {
		t.Fatalf("expected 2 rows, got %d", result.TotalContacts)
	}
	if len(result.Headers) != 3 || result.Headers[0] != "Full Name" {
		t.Fatalf("unexpected headers: %v", result.Headers)
	}
	if len(result.Preview) != 2 {
		t.Fatalf("preview should cover all rows when under the cap, got %d", len(result.Preview))
	}

	batch, err := store.Batches().GetByBatchID(context.Background(), result.BatchID)
	if err != nil || batch == nil {
		t.Fatalf("batch not persisted: %v", err)
	}
	if batch.Status != constants.BatchStatusPending || batch.TotalContacts != 2 {
		t.Fatalf("unexpected batch: %+v", batch)
	}
	rows, err := store.Rows().ListByBatch(context.Background(), result.BatchID)
	if err != nil {
		t.Fatalf("list rows failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Fields["Full Name"] != "Alice Zhang" {
		t.Fatalf("raw rows not persisted: %+v", rows)
	}
}

func TestIngestPreviewCapped(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	var b strings.Builder
	b.WriteString("Name\n")
	for i := 0; i < 10; i++ {
		b.WriteString("Row\n")
	}
	result, err := svc.Ingest(context.Background(), IngestInput{
		FileName: "many.csv",
		Size:     int64(b.Len()),
		Reader:   strings.NewReader(b.String()),
	})
	if err != nil {
		t.Fatalf("ingest failed: %v", err)
	}
	if len(result.Preview) != constants.UploadPreviewRows {
		t.Fatalf("preview must cap at %d rows, got %d", constants.UploadPreviewRows, len(result.Preview))
	}
	if result.TotalContacts != 10 {
		t.Fatalf("expected 10 rows, got %d", result.TotalContacts)
	}
}

func TestIngestRejections(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	ctx := context.Background()

	if _, err := svc.Ingest(ctx, IngestInput{FileName: "contacts.txt", Size: 10, Reader: strings.NewReader("x")}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := svc.Ingest(ctx, IngestInput{FileName: "contacts.csv", Size: 2 << 20, Reader: strings.NewReader("x")}); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
	if _, err := svc.Ingest(ctx, IngestInput{FileName: "contacts.csv", Size: 5, Reader: strings.NewReader("Name\n")}); !errors.Is(err, ErrEmptyDataset) {
		t.Fatalf("expected ErrEmptyDataset, got %v", err)
	}
}

func TestApplyMapping(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	batch, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping())
	if err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	if batch.Status != constants.BatchStatusMapped {
		t.Fatalf("expected mapped status, got %s", batch.Status)
	}
	if batch.MaterializedCount != 2 {
		t.Fatalf("materialized count must equal row count, got %d", batch.MaterializedCount)
	}
	if batch.FieldMapping[constants.ContactFieldName] != "Full Name" {
		t.Fatalf("field mapping not stored: %+v", batch.FieldMapping)
	}

	contacts, err := store.Contacts().ListByBatch(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("list contacts failed: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("expected 2 contacts, got %d", len(contacts))
	}
	if contacts[0].Name != "Alice Zhang" || contacts[0].Email != "alice@example.com" {
		t.Fatalf("unexpected first contact: %+v", contacts[0])
	}
	if contacts[0].Company != "" {
		t.Fatalf("unmapped field must stay empty, got %q", contacts[0].Company)
	}
}

func TestApplyMappingRejectsInvalid(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	cases := map[string]map[string]string{
		"empty":        {},
		"without name": {constants.ContactFieldEmail: "Mail"},
		"unknown key":  {constants.ContactFieldName: "Full Name", "nickname": "Mail"},
		"blank name":   {constants.ContactFieldName: "  "},
	}
	for name, mapping := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.ApplyMapping(ctx, result.BatchID, mapping); !errors.Is(err, ErrInvalidMapping) {
				t.Fatalf("expected ErrInvalidMapping, got %v", err)
			}
		})
	}

	batch, err := store.Batches().GetByBatchID(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if batch.Status != constants.BatchStatusPending {
		t.Fatalf("rejected mapping must leave status pending, got %s", batch.Status)
	}
}

func TestApplyMappingSetOnce(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("first mapping failed: %v", err)
	}
	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); !errors.Is(err, ErrMappingAlreadySet) {
		t.Fatalf("expected ErrMappingAlreadySet, got %v", err)
	}
}

func TestApplyMappingBatchNotFound(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	if _, err := svc.ApplyMapping(context.Background(), "no-such-batch", sampleMapping()); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestGenerateArtifacts(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	generated, err := svc.GenerateArtifacts(ctx, result.BatchID, "http://localhost:8080")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if generated.GeneratedCount != 2 || generated.TotalContacts != 2 {
		t.Fatalf("unexpected result: %+v", generated)
	}

	batch, err := store.Batches().GetByBatchID(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if batch.Status != constants.BatchStatusCompleted || batch.GeneratedCount != 2 {
		t.Fatalf("unexpected batch state: %+v", batch)
	}

	contacts, err := store.Contacts().ListByBatch(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("list contacts failed: %v", err)
	}
	for _, contact := range contacts {
		if !contact.HasArtifacts() {
			t.Fatalf("contact %d missing artifacts", contact.ID)
		}
		if !strings.HasPrefix(*contact.VCardData, "BEGIN:VCARD\r\n") {
			t.Fatalf("unexpected vcard data: %q", *contact.VCardData)
		}
		if !strings.HasPrefix(*contact.QRCodeURL, "data:image/png;base64,") {
			t.Fatalf("unexpected qr code url: %q", *contact.QRCodeURL)
		}
	}
}

func TestGenerateArtifactsPartialFailure(t *testing.T) {
	encoder := &failingQREncoder{failAt: 1}
	svc, store := newTestBatchService(t, encoder)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	generated, err := svc.GenerateArtifacts(ctx, result.BatchID, "http://localhost:8080")
	if err != nil {
		t.Fatalf("generate must tolerate one failing contact: %v", err)
	}
	if generated.GeneratedCount != 1 {
		t.Fatalf("expected 1 generated contact, got %d", generated.GeneratedCount)
	}

	batch, err := store.Batches().GetByBatchID(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if batch.Status != constants.BatchStatusCompleted || batch.GeneratedCount != 1 {
		t.Fatalf("unexpected batch state: %+v", batch)
	}

	contacts, err := store.Contacts().ListByBatch(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("list contacts failed: %v", err)
	}
	if contacts[0].HasArtifacts() {
		t.Fatalf("failed contact must stay untouched")
	}
	if !contacts[1].HasArtifacts() {
		t.Fatalf("second contact should have artifacts")
	}
}

func TestGenerateArtifactsAllFail(t *testing.T) {
	svc, store := newTestBatchService(t, alwaysFailEncoder{})
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	generated, err := svc.GenerateArtifacts(ctx, result.BatchID, "")
	if err != nil {
		t.Fatalf("all-fail generation is still a completed batch: %v", err)
	}
	if generated.GeneratedCount != 0 {
		t.Fatalf("expected 0 generated, got %d", generated.GeneratedCount)
	}
	batch, err := store.Batches().GetByBatchID(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("get batch failed: %v", err)
	}
	if batch.Status != constants.BatchStatusCompleted {
		t.Fatalf("expected completed, got %s", batch.Status)
	}
}

type alwaysFailEncoder struct{}

func (alwaysFailEncoder) EncodeDataURI(string) (string, error) {
	return "", errors.New("forced encoder failure")
}

func TestGenerateArtifactsGuards(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	ctx := context.Background()

	if _, err := svc.GenerateArtifacts(ctx, "no-such-batch", ""); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}

	result := ingestSampleCSV(t, svc)
	if _, err := svc.GenerateArtifacts(ctx, result.BatchID, ""); !errors.Is(err, ErrNoContacts) {
		t.Fatalf("expected ErrNoContacts before mapping, got %v", err)
	}
}

func TestGenerateArtifactsRegenerates(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	if _, err := svc.GenerateArtifacts(ctx, result.BatchID, ""); err != nil {
		t.Fatalf("first generate failed: %v", err)
	}
	contacts, _ := store.Contacts().ListByBatch(ctx, result.BatchID)
	first := *contacts[0].QRCodeURL

	if _, err := svc.GenerateArtifacts(ctx, result.BatchID, ""); err != nil {
		t.Fatalf("second generate failed: %v", err)
	}
	contacts, _ = store.Contacts().ListByBatch(ctx, result.BatchID)
	if *contacts[0].QRCodeURL != first {
		t.Fatalf("same input must regenerate identical artifacts")
	}
}

func TestRequestGenerationSyncFallback(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	// 队列未启用，async 请求退回同步执行
	queued, generated, err := svc.RequestGeneration(ctx, result.BatchID, "", true)
	if err != nil {
		t.Fatalf("request generation failed: %v", err)
	}
	if queued {
		t.Fatalf("disabled queue must not report queued")
	}
	if generated == nil || generated.GeneratedCount != 2 {
		t.Fatalf("unexpected result: %+v", generated)
	}
}

func TestGetBatchDetail(t *testing.T) {
	svc, _ := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	detail, err := svc.GetBatchDetail(ctx, result.BatchID)
	if err != nil {
		t.Fatalf("get detail failed: %v", err)
	}
	if detail.Batch.BatchID != result.BatchID || len(detail.Contacts) != 2 {
		t.Fatalf("unexpected detail: %+v", detail)
	}

	if _, err := svc.GetBatchDetail(ctx, "no-such-batch"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestGetContact(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	contacts, _ := store.Contacts().ListByBatch(ctx, result.BatchID)
	contact, err := svc.GetContact(ctx, contacts[0].ID)
	if err != nil || contact.Name != "Alice Zhang" {
		t.Fatalf("unexpected contact: %+v err=%v", contact, err)
	}

	if _, err := svc.GetContact(ctx, 99999); !errors.Is(err, ErrContactNotFound) {
		t.Fatalf("expected ErrContactNotFound, got %v", err)
	}
}

func TestDeleteBatchContacts(t *testing.T) {
	svc, store := newTestBatchService(t, nil)
	result := ingestSampleCSV(t, svc)
	ctx := context.Background()

	if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
		t.Fatalf("apply mapping failed: %v", err)
	}
	if err := svc.DeleteBatchContacts(ctx, result.BatchID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	contacts, _ := store.Contacts().ListByBatch(ctx, result.BatchID)
	if len(contacts) != 0 {
		t.Fatalf("contacts should be deleted, got %d", len(contacts))
	}
	rows, _ := store.Rows().ListByBatch(ctx, result.BatchID)
	if len(rows) != 0 {
		t.Fatalf("rows should be deleted, got %d", len(rows))
	}
	batch, _ := store.Batches().GetByBatchID(ctx, result.BatchID)
	if batch.MaterializedCount != 0 || batch.GeneratedCount != 0 {
		t.Fatalf("counters should be reset: %+v", batch)
	}

	if err := svc.DeleteBatchContacts(ctx, "no-such-batch"); !errors.Is(err, ErrBatchNotFound) {
		t.Fatalf("expected ErrBatchNotFound, got %v", err)
	}
}

func TestIngestUnderstatedSizeRejected(t *testing.T) {
	cfg := testUploadConfig()
	cfg.MaxSize = 64
	store := repository.NewMemoryStore()
	queueClient, err := queue.NewClient(nil)
	if err != nil {
		t.Fatalf("new queue client failed: %v", err)
	}
	svc := NewBatchService(store, queueClient, qrimg.NewEncoder(64, "low"), cfg, testArtifactConfig())

	var b strings.Builder
	b.WriteString("Name\n")
	for i := 0; i < 20; i++ {
		b.WriteString("Row Person\n")
	}

	// 申报大小低于真实流，应拒绝而不是静默截断入库
	_, err = svc.Ingest(context.Background(), IngestInput{
		FileName: "contacts.csv",
		Size:     10,
		Reader:   strings.NewReader(b.String()),
	})
	if !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("expected ErrFileTooLarge, got %v", err)
	}
}

// faultStore 在批次状态更新到指定值时注入存储故障
type faultStore struct {
	repository.Store
	failOnStatus string
}

func (s *faultStore) Batches() repository.BatchRepository {
	return &faultBatchRepository{
		BatchRepository: s.Store.Batches(),
		failOnStatus:    s.failOnStatus,
	}
}

type faultBatchRepository struct {
	repository.BatchRepository
	failOnStatus string
}

func (r *faultBatchRepository) Update(ctx context.Context, batchID string, update repository.BatchUpdate) (*models.Batch, error) {
	if update.Status != nil && *update.Status == r.failOnStatus {
		return nil, errors.New("forced store failure")
	}
	return r.BatchRepository.Update(ctx, batchID, update)
}

func TestGenerateArtifactsStoreFailureMarksFailed(t *testing.T) {
	cases := []struct {
		name         string
		failOnStatus string
	}{
		{name: "before_loop", failOnStatus: constants.BatchStatusGenerating},
		{name: "after_loop", failOnStatus: constants.BatchStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newTestBatchService(t, nil)
			result := ingestSampleCSV(t, svc)
			ctx := context.Background()

			if _, err := svc.ApplyMapping(ctx, result.BatchID, sampleMapping()); err != nil {
				t.Fatalf("apply mapping failed: %v", err)
			}

			svc.store = &faultStore{Store: store, failOnStatus: tc.failOnStatus}
			_, err := svc.GenerateArtifacts(ctx, result.BatchID, "")
			if !errors.Is(err, ErrStoreUnavailable) {
				t.Fatalf("expected ErrStoreUnavailable, got %v", err)
			}

			batch, err := store.Batches().GetByBatchID(ctx, result.BatchID)
			if err != nil || batch == nil {
				t.Fatalf("batch lookup failed: %v", err)
			}
			if batch.Status != constants.BatchStatusFailed {
				t.Fatalf("status want failed got %s", batch.Status)
			}
		})
	}
}
