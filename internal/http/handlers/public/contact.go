package public

import (
	"net/http"
	"strconv"

	"github.com/qrcard-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

func parseContactID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("contactId"), 10, 32)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "invalid contact id", nil)
		return 0, false
	}
	return uint(id), true
}

// GetContact 获取联系人详情
func (h *Handler) GetContact(c *gin.Context) {
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}
	contact, err := h.BatchService.GetContact(c.Request.Context(), contactID)
	if err != nil {
		respondContactError(c, err)
		return
	}
	response.Success(c, contact)
}

// DownloadVCard 下载联系人 vCard 文本
func (h *Handler) DownloadVCard(c *gin.Context) {
	contactID, ok := parseContactID(c)
	if !ok {
		return
	}
	filename, text, err := h.ArtifactService.VCardText(c.Request.Context(), contactID)
	if err != nil {
		respondContactError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "text/vcard; charset=utf-8", []byte(text))
}
