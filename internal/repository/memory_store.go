package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/qrcard-next/internal/models"
)

// MemoryStore 纯内存存储实现，无外部依赖。
// 与 GormStore 对所有仓库操作保持相同的可观测行为，
// 供测试以及 database.driver=memory 模式使用。
type MemoryStore struct {
	mu            sync.Mutex
	batches       map[string]*models.Batch
	contacts      map[uint]*models.Contact
	rows          map[uint]*models.BatchRow
	nextBatchPK   uint
	nextContactID uint
	nextRowID     uint
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		batches:  make(map[string]*models.Batch),
		contacts: make(map[uint]*models.Contact),
		rows:     make(map[uint]*models.BatchRow),
	}
}

// Batches 批次仓库
func (s *MemoryStore) Batches() BatchRepository {
	return &memoryBatchRepository{store: s}
}

// Contacts 联系人仓库
func (s *MemoryStore) Contacts() ContactRepository {
	return &memoryContactRepository{store: s}
}

// Rows 原始行仓库
func (s *MemoryStore) Rows() BatchRowRepository {
	return &memoryBatchRowRepository{store: s}
}

// Transaction 以快照回滚的方式提供全有或全无语义。
// 事务执行期间不隔离其他 goroutine 的读写；
// 管道对同一批次的操作本就要求外部串行化。
func (s *MemoryStore) Transaction(ctx context.Context, fn func(Store) error) error {
	if fn == nil {
		return errors.New("transaction fn is nil")
	}
	snapshot := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	batches       map[string]*models.Batch
	contacts      map[uint]*models.Contact
	rows          map[uint]*models.BatchRow
	nextBatchPK   uint
	nextContactID uint
	nextRowID     uint
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memorySnapshot{
		batches:       make(map[string]*models.Batch, len(s.batches)),
		contacts:      make(map[uint]*models.Contact, len(s.contacts)),
		rows:          make(map[uint]*models.BatchRow, len(s.rows)),
		nextBatchPK:   s.nextBatchPK,
		nextContactID: s.nextContactID,
		nextRowID:     s.nextRowID,
	}
	for k, v := range s.batches {
		snap.batches[k] = cloneBatch(v)
	}
	for k, v := range s.contacts {
		snap.contacts[k] = cloneContact(v)
	}
	for k, v := range s.rows {
		snap.rows[k] = cloneRow(v)
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = snap.batches
	s.contacts = snap.contacts
	s.rows = snap.rows
	s.nextBatchPK = snap.nextBatchPK
	s.nextContactID = snap.nextContactID
	s.nextRowID = snap.nextRowID
}

type memoryBatchRepository struct {
	store *MemoryStore
}

func (r *memoryBatchRepository) Create(_ context.Context, batch *models.Batch) error {
	if batch == nil {
		return errors.New("batch is nil")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.batches[batch.BatchID]; exists {
		return errors.New("duplicate batch id")
	}
	s.nextBatchPK++
	batch.ID = s.nextBatchPK
	now := time.Now()
	batch.CreatedAt = now
	batch.UpdatedAt = now
	s.batches[batch.BatchID] = cloneBatch(batch)
	return nil
}

func (r *memoryBatchRepository) GetByBatchID(_ context.Context, batchID string) (*models.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, nil
	}
	return cloneBatch(batch), nil
}

func (r *memoryBatchRepository) Update(_ context.Context, batchID string, update BatchUpdate) (*models.Batch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	batch, ok := s.batches[batchID]
	if !ok {
		return nil, nil
	}
	if update.Status != nil {
		batch.Status = *update.Status
	}
	if update.FieldMapping != nil {
		batch.FieldMapping = cloneStringMap(update.FieldMapping)
	}
	if update.MaterializedCount != nil {
		batch.MaterializedCount = *update.MaterializedCount
	}
	if update.GeneratedCount != nil {
		batch.GeneratedCount = *update.GeneratedCount
	}
	batch.UpdatedAt = time.Now()
	return cloneBatch(batch), nil
}

type memoryContactRepository struct {
	store *MemoryStore
}

func (r *memoryContactRepository) Create(_ context.Context, contact *models.Contact) error {
	if contact == nil {
		return errors.New("contact is nil")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertContactLocked(contact)
	return nil
}

func (r *memoryContactRepository) CreateBatch(_ context.Context, contacts []models.Contact) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range contacts {
		s.insertContactLocked(&contacts[i])
	}
	return nil
}

func (s *MemoryStore) insertContactLocked(contact *models.Contact) {
	s.nextContactID++
	contact.ID = s.nextContactID
	now := time.Now()
	contact.CreatedAt = now
	contact.UpdatedAt = now
	s.contacts[contact.ID] = cloneContact(contact)
}

func (r *memoryContactRepository) GetByID(_ context.Context, id uint) (*models.Contact, error) {
	if id == 0 {
		return nil, errors.New("invalid contact id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[id]
	if !ok {
		return nil, nil
	}
	return cloneContact(contact), nil
}

func (r *memoryContactRepository) ListByBatch(_ context.Context, batchID string) ([]models.Contact, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var contacts []models.Contact
	for _, contact := range s.contacts {
		if contact.BatchID == batchID {
			contacts = append(contacts, *cloneContact(contact))
		}
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })
	return contacts, nil
}

func (r *memoryContactRepository) Update(_ context.Context, id uint, update ContactUpdate) (*models.Contact, error) {
	if id == 0 {
		return nil, errors.New("invalid contact id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	contact, ok := s.contacts[id]
	if !ok {
		return nil, nil
	}
	if update.VCardData != nil {
		value := *update.VCardData
		contact.VCardData = &value
	}
	if update.QRCodeURL != nil {
		value := *update.QRCodeURL
		contact.QRCodeURL = &value
	}
	contact.UpdatedAt = time.Now()
	return cloneContact(contact), nil
}

func (r *memoryContactRepository) DeleteByBatch(_ context.Context, batchID string) error {
	if strings.TrimSpace(batchID) == "" {
		return errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, contact := range s.contacts {
		if contact.BatchID == batchID {
			delete(s.contacts, id)
		}
	}
	return nil
}

type memoryBatchRowRepository struct {
	store *MemoryStore
}

func (r *memoryBatchRowRepository) CreateBatch(_ context.Context, rows []models.BatchRow) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range rows {
		s.nextRowID++
		rows[i].ID = s.nextRowID
		rows[i].CreatedAt = time.Now()
		s.rows[rows[i].ID] = cloneRow(&rows[i])
	}
	return nil
}

func (r *memoryBatchRowRepository) ListByBatch(_ context.Context, batchID string) ([]models.BatchRow, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []models.BatchRow
	for _, row := range s.rows {
		if row.BatchID == batchID {
			rows = append(rows, *cloneRow(row))
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].RowIndex < rows[j].RowIndex })
	return rows, nil
}

func (r *memoryBatchRowRepository) DeleteByBatch(_ context.Context, batchID string) error {
	if strings.TrimSpace(batchID) == "" {
		return errors.New("invalid batch id")
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.BatchID == batchID {
			delete(s.rows, id)
		}
	}
	return nil
}

func cloneBatch(batch *models.Batch) *models.Batch {
	if batch == nil {
		return nil
	}
	copied := *batch
	copied.FieldMapping = cloneStringMap(batch.FieldMapping)
	return &copied
}

func cloneContact(contact *models.Contact) *models.Contact {
	if contact == nil {
		return nil
	}
	copied := *contact
	if contact.VCardData != nil {
		value := *contact.VCardData
		copied.VCardData = &value
	}
	if contact.QRCodeURL != nil {
		value := *contact.QRCodeURL
		copied.QRCodeURL = &value
	}
	return &copied
}

func cloneRow(row *models.BatchRow) *models.BatchRow {
	if row == nil {
		return nil
	}
	copied := *row
	copied.Fields = cloneStringMap(row.Fields)
	return &copied
}

func cloneStringMap(m models.StringMap) models.StringMap {
	if m == nil {
		return nil
	}
	copied := make(models.StringMap, len(m))
	for k, v := range m {
		copied[k] = v
	}
	return copied
}
