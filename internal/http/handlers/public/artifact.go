package public

import (
	"net/http"

	handlershared "github.com/qrcard-next/internal/http/handlers/shared"
	"github.com/qrcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// DownloadQR 下载联系人二维码 PNG
func (h *Handler) DownloadQR(c *gin.Context) {
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}
	filename, data, err := h.ArtifactService.QRImage(c.Request.Context(), contactID)
	if err != nil {
		respondContactError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "image/png", data)
}

// DownloadBundle 下载批次二维码 ZIP 包
func (h *Handler) DownloadBundle(c *gin.Context) {
	batchID := c.Param("batchId")

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+service.BundleFileName(batchID)+`"`)
	if err := h.ArtifactService.WriteBundle(c.Request.Context(), c.Writer, batchID); err != nil {
		// 响应头可能已写出，只能记录并尽量回应错误
		if c.Writer.Written() {
			handlershared.RequestLog(c).Errorw("bundle_stream_failed", "batch_id", batchID, "error", err)
			return
		}
		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Header("Content-Disposition", "")
		respondBatchError(c, err)
	}
}
