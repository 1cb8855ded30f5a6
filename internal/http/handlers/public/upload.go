package public

import (
	handlershared "github.com/qrcard-next/internal/http/handlers/shared"
	"github.com/qrcard-next/internal/http/response"
	"github.com/qrcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// UploadResponse 上传响应
type UploadResponse struct {
	BatchID       string              `json:"batch_id"`
	FileName      string              `json:"file_name"`
	Headers       []string            `json:"headers"`
	Preview       []map[string]string `json:"preview"`
	TotalContacts int                 `json:"total_contacts"`
}

// Upload 上传联系人表格，创建批次
func (h *Handler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, response.CodeBadRequest, "file is required", err)
		return
	}

	src, err := file.Open()
	if err != nil {
		respondError(c, response.CodeInternal, "failed to read uploaded file", err)
		return
	}
	defer src.Close()

	result, err := h.BatchService.Ingest(c.Request.Context(), service.IngestInput{
		FileName: file.Filename,
		Size:     file.Size,
		Reader:   src,
	})
	if err != nil {
		respondUploadError(c, err)
		return
	}

	handlershared.RequestLog(c).Infow("upload_accepted",
		"batch_id", result.BatchID,
		"file_name", result.FileName,
		"total_contacts", result.TotalContacts,
	)
	response.Success(c, UploadResponse{
		BatchID:       result.BatchID,
		FileName:      result.FileName,
		Headers:       result.Headers,
		Preview:       result.Preview,
		TotalContacts: result.TotalContacts,
	})
}
