package public

import (
	"errors"

	"github.com/qrcard-next/internal/http/response"
	"github.com/qrcard-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

var uploadErrorRules = []mappedHandlerError{
	{target: service.ErrUnsupportedFormat, code: response.CodeBadRequest, msg: "unsupported file format"},
	{target: service.ErrFileTooLarge, code: response.CodeBadRequest, msg: "file too large"},
	{target: service.ErrEmptyDataset, code: response.CodeBadRequest, msg: "file contains no data rows"},
}

var mappingErrorRules = []mappedHandlerError{
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, msg: "batch not found"},
	{target: service.ErrInvalidMapping, code: response.CodeBadRequest, msg: "invalid field mapping"},
	{target: service.ErrMappingAlreadySet, code: response.CodeBadRequest, msg: "field mapping already set"},
}

var generateErrorRules = []mappedHandlerError{
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, msg: "batch not found"},
	{target: service.ErrNoContacts, code: response.CodeNotFound, msg: "no contacts found for this batch"},
}

var batchErrorRules = []mappedHandlerError{
	{target: service.ErrBatchNotFound, code: response.CodeNotFound, msg: "batch not found"},
	{target: service.ErrNoContacts, code: response.CodeNotFound, msg: "no contacts found for this batch"},
}

var contactErrorRules = []mappedHandlerError{
	{target: service.ErrContactNotFound, code: response.CodeNotFound, msg: "contact not found"},
	{target: service.ErrArtifactNotGenerated, code: response.CodeNotFound, msg: "qr code not found for this contact"},
}

func respondUploadError(c *gin.Context, err error) {
	respondWithMappedError(c, err, uploadErrorRules, response.CodeInternal, "failed to process uploaded file")
}

func respondMappingError(c *gin.Context, err error) {
	respondWithMappedError(c, err, mappingErrorRules, response.CodeInternal, "failed to process field mapping")
}

func respondGenerateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, generateErrorRules, response.CodeInternal, "failed to generate qr codes")
}

func respondBatchError(c *gin.Context, err error) {
	respondWithMappedError(c, err, batchErrorRules, response.CodeInternal, "failed to fetch batch details")
}

func respondContactError(c *gin.Context, err error) {
	respondWithMappedError(c, err, contactErrorRules, response.CodeInternal, "failed to fetch contact details")
}
