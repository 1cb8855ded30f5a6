package public

import (
	"net/http"

	"github.com/qrcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// DownloadTemplate 下载字段映射示例模板
func (h *Handler) DownloadTemplate(c *gin.Context) {
	c.Header("Content-Disposition", `attachment; filename="`+service.TemplateFileName+`"`)
	c.Data(http.StatusOK, "text/csv", service.TemplateCSV())
}
