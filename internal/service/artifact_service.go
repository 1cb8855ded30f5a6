package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/qrcard-next/internal/config"
	"github.com/qrcard-next/internal/logger"
	"github.com/qrcard-next/internal/models"
	"github.com/qrcard-next/internal/qrimg"
	"github.com/qrcard-next/internal/vcard"
)

// ArtifactService 产物下载与打包服务
type ArtifactService struct {
	batchService *BatchService
	artifactCfg  config.ArtifactConfig
}

// NewArtifactService 创建产物服务
func NewArtifactService(batchService *BatchService, artifactCfg config.ArtifactConfig) *ArtifactService {
	return &ArtifactService{
		batchService: batchService,
		artifactCfg:  artifactCfg,
	}
}

// VCardText 按存储的联系人字段重新生成 vCard 文本。
// 文本下载不依赖二维码生成是否执行过。
func (s *ArtifactService) VCardText(ctx context.Context, contactID uint) (string, string, error) {
	contact, err := s.batchService.GetContact(ctx, contactID)
	if err != nil {
		return "", "", err
	}
	text := vcard.Encode(s.batchService.buildVCardContact(contact), s.batchService.vcardOptions())
	return SanitizeFileName(contact.Name) + ".vcf", text, nil
}

// QRImage 返回联系人的二维码 PNG 字节
func (s *ArtifactService) QRImage(ctx context.Context, contactID uint) (string, []byte, error) {
	contact, err := s.batchService.GetContact(ctx, contactID)
	if err != nil {
		return "", nil, err
	}
	if contact.QRCodeURL == nil || *contact.QRCodeURL == "" {
		return "", nil, ErrArtifactNotGenerated
	}
	data, err := qrimg.FromDataURI(*contact.QRCodeURL)
	if err != nil {
		logger.Errorw("qr_data_uri_decode_failed", "contact_id", contactID, "error", err)
		return "", nil, ErrArtifactNotGenerated
	}
	return "qr-" + SanitizeFileName(contact.Name) + ".png", data, nil
}

// WriteBundle 把批次内已生成二维码的联系人打包为 ZIP 写入 w。
// 缺少二维码的联系人直接跳过，零条目的归档也是合法输出。
func (s *ArtifactService) WriteBundle(ctx context.Context, w io.Writer, batchID string) error {
	detail, err := s.batchService.GetBatchDetail(ctx, batchID)
	if err != nil {
		return err
	}
	if len(detail.Contacts) == 0 {
		return ErrNoContacts
	}

	archive := zip.NewWriter(w)
	usedNames := make(map[string]bool)
	for i := range detail.Contacts {
		contact := &detail.Contacts[i]
		if contact.QRCodeURL == nil || *contact.QRCodeURL == "" {
			continue
		}
		data, err := qrimg.FromDataURI(*contact.QRCodeURL)
		if err != nil {
			logger.Warnw("bundle_entry_skipped",
				"batch_id", batchID,
				"contact_id", contact.ID,
				"error", err,
			)
			continue
		}
		entry, err := archive.Create(bundleEntryName(contact, usedNames))
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
		if _, err := entry.Write(data); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return archive.Close()
}

// BundleFileName 批次 ZIP 的下载文件名
func BundleFileName(batchID string) string {
	return "qr-codes-" + batchID + ".zip"
}

// bundleEntryName 生成归档内唯一的条目名，重名时追加联系人主键
func bundleEntryName(contact *models.Contact, used map[string]bool) string {
	name := SanitizeFileName(contact.Name)
	if name == "contact" && contact.Name == "" {
		name = strconv.FormatUint(uint64(contact.ID), 10)
	}
	if used[name] {
		name = name + "-" + strconv.FormatUint(uint64(contact.ID), 10)
	}
	used[name] = true
	return name + "-qr.png"
}

// TemplateFileName 模板 CSV 的下载文件名
const TemplateFileName = "vcard-template.csv"

// TemplateCSV 字段映射示例模板
func TemplateCSV() []byte {
	lines := []string{
		"name,email,primary phone,secondary phone,company,position,website",
		"John Doe,john.doe@example.com,1-555-123-4567,1-555-987-6543,Example Corp,Software Engineer,https://johndoe.com",
		"Jane Smith,jane.smith@company.com,91-9876543210,91-1234567890,Tech Solutions Inc,Product Manager,https://janesmith.com",
	}
	return []byte(strings.Join(lines, "\n") + "\n")
}

// SanitizeFileName 清理下载文件名。
// 仅保留字母数字与空白，空白折叠为下划线，空结果回退为 contact。
func SanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r > unicode.MaxASCII {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	cleaned := strings.Join(strings.Fields(b.String()), "_")
	if cleaned == "" {
		return "contact"
	}
	return cleaned
}
