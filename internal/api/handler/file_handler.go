package handler

import (
	log "log/slog"
	"strconv"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/response"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

type FileHandler struct {
	contractSvc service.ContractService
}

func NewFileHandler(contractSvc service.ContractService) *FileHandler {
	return &FileHandler{contractSvc: contractSvc}
}

// UploadContract 上传合同或交付物
func (s *FileHandler) UploadContract(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.PostForm("request_id"), 10, 64)
	if err != nil || requestID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	userID := c.GetUint64("user_id")
	res, err := s.contractSvc.UploadContract(c.Request.Context(), userID, requestID, file.Filename, reader, file.Size)
	if err != nil {
		log.ErrorContext(c.Request.Context(), "合同上传失败", "request_id", requestID, "err", err)
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// UploadTemp 上传临时文件
func (s *FileHandler) UploadTemp(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	reader, err := file.Open()
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	defer func() { _ = reader.Close() }()

	userID := c.GetUint64("user_id")
	objectKey, err := s.contractSvc.UploadTemp(c.Request.Context(), userID, file.Filename, reader, file.Size)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, map[string]string{"object_key": objectKey})
}

// ListFiles 查询申请单下的文件
func (s *FileHandler) ListFiles(c *gin.Context) {
	requestID, err := strconv.ParseUint(c.Query("request_id"), 10, 64)
	if err != nil || requestID == 0 {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	res, err := s.contractSvc.ListFiles(c.Request.Context(), userID, isStaff(c), requestID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}

// Sign 客户署名确认合同
func (s *FileHandler) Sign(c *gin.Context) {
	fileID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	userID := c.GetUint64("user_id")
	if err := s.contractSvc.SignContract(c.Request.Context(), userID, fileID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// Delete 后台删除文件
func (s *FileHandler) Delete(c *gin.Context) {
	fileID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.Error(c, service.ErrParamInvalid)
		return
	}
	if err := s.contractSvc.DeleteFile(c.Request.Context(), fileID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
