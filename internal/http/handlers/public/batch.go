package public

import (
	"strings"

	"github.com/qrcard-next/internal/http/response"
	"github.com/qrcard-next/internal/models"

	"github.com/gin-gonic/gin"
)

// MappingRequest 字段映射请求
type MappingRequest struct {
	Mapping map[string]string `json:"mapping" binding:"required"`
}

// GenerateRequest 产物生成请求
type GenerateRequest struct {
	Async bool `json:"async"`
}

// BatchView 批次响应结构
type BatchView struct {
	BatchID           string           `json:"batch_id"`
	FileName          string           `json:"file_name"`
	Status            string           `json:"status"`
	TotalContacts     int              `json:"total_contacts"`
	MaterializedCount int              `json:"materialized_count"`
	GeneratedCount    int              `json:"generated_count"`
	FieldMapping      models.StringMap `json:"field_mapping,omitempty"`
}

func newBatchView(batch *models.Batch) BatchView {
	return BatchView{
		BatchID:           batch.BatchID,
		FileName:          batch.FileName,
		Status:            batch.Status,
		TotalContacts:     batch.TotalContacts,
		MaterializedCount: batch.MaterializedCount,
		GeneratedCount:    batch.GeneratedCount,
		FieldMapping:      batch.FieldMapping,
	}
}

// ApplyMapping 设置字段映射并物化联系人
func (h *Handler) ApplyMapping(c *gin.Context) {
	batchID := c.Param("batchId")
	var req MappingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "invalid request body", err)
		return
	}

	batch, err := h.BatchService.ApplyMapping(c.Request.Context(), batchID, req.Mapping)
	if err != nil {
		respondMappingError(c, err)
		return
	}
	response.Success(c, newBatchView(batch))
}

// Generate 触发批次产物生成
func (h *Handler) Generate(c *gin.Context) {
	batchID := c.Param("batchId")
	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "invalid request body", err)
			return
		}
	}

	queued, result, err := h.BatchService.RequestGeneration(c.Request.Context(), batchID, requestOrigin(c), req.Async)
	if err != nil {
		respondGenerateError(c, err)
		return
	}
	if queued {
		response.Success(c, gin.H{"queued": true})
		return
	}
	response.Success(c, gin.H{
		"queued":          false,
		"generated_count": result.GeneratedCount,
		"total_contacts":  result.TotalContacts,
	})
}

// GetBatch 获取批次详情
func (h *Handler) GetBatch(c *gin.Context) {
	batchID := c.Param("batchId")
	detail, err := h.BatchService.GetBatchDetail(c.Request.Context(), batchID)
	if err != nil {
		respondBatchError(c, err)
		return
	}
	response.Success(c, gin.H{
		"batch":    newBatchView(detail.Batch),
		"contacts": detail.Contacts,
	})
}

// DeleteContacts 清理批次下的联系人
func (h *Handler) DeleteContacts(c *gin.Context) {
	batchID := c.Param("batchId")
	if err := h.BatchService.DeleteBatchContacts(c.Request.Context(), batchID); err != nil {
		respondBatchError(c, err)
		return
	}
	response.Success(c, nil)
}

// requestOrigin 从请求推导外部访问地址
func requestOrigin(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}
