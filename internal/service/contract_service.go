package service

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/config"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/api/dto"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/model"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/minio"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/util"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/repository"

	"github.com/google/uuid"
)

const presignedExpiry = 2 * time.Hour

type ContractService interface {
	UploadContract(ctx context.Context, userID uint64, requestID uint64, fileName string, file io.ReadSeeker, size int64) (*dto.ContractFileDTO, error)
	UploadTemp(ctx context.Context, userID uint64, fileName string, file io.ReadSeeker, size int64) (string, error)
	ListFiles(ctx context.Context, userID uint64, isStaff bool, requestID uint64) ([]*dto.ContractFileDTO, error)
	SignContract(ctx context.Context, userID uint64, fileID uint64) error
	DeleteFile(ctx context.Context, fileID uint64) error
}

type contractServiceImpl struct {
	contractRepo repository.ContractRepo
	requestRepo  repository.ServiceRequestRepo
}

func NewContractService(contractRepo repository.ContractRepo, requestRepo repository.ServiceRequestRepo) ContractService {
	return &contractServiceImpl{
		contractRepo: contractRepo,
		requestRepo:  requestRepo,
	}
}

// UploadContract 上传合同或交付物，图片类型同时生成缩略图
func (s *contractServiceImpl) UploadContract(ctx context.Context, userID uint64, requestID uint64, fileName string, file io.ReadSeeker, size int64) (*dto.ContractFileDTO, error) {
	req, err := s.requestRepo.GetRequestById(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}

	contentType, err := util.GetSafeContentType(file)
	if err != nil {
		return nil, err
	}
	isImage := strings.HasPrefix(contentType, consts.MimePrefixImage)
	isPDF := strings.HasPrefix(contentType, consts.MimePrefixPDF)
	if !isImage && !isPDF {
		return nil, ErrFileNotSupported
	}

	objectKey := fmt.Sprintf("contracts/%d/%s%s", requestID, uuid.NewString(), filepath.Ext(fileName))
	if _, err := minio.UploadFile(ctx, minio.MainBucket, objectKey, file, size, contentType); err != nil {
		return nil, err
	}

	var thumbKey *string
	if isImage {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		thumbReader, thumbSize, err := util.MakeThumbnail(file)
		if err != nil {
			// 缩略图失败不阻断上传
			log.Warn("缩略图生成失败", "object", objectKey, "err", err)
		} else {
			key := objectKey + "_thumb.jpg"
			if _, err := minio.UploadFile(ctx, minio.MainBucket, key, thumbReader, thumbSize, "image/jpeg"); err == nil {
				thumbKey = &key
			}
		}
	}

	record := &model.ContractFile{
		RequestID: requestID,
		UserID:    userID,
		FileName:  fileName,
		FileType:  contentType,
		ObjectKey: objectKey,
		ThumbKey:  thumbKey,
		Size:      size,
	}
	if err := s.contractRepo.CreateFile(ctx, record); err != nil {
		return nil, err
	}

	return s.toContractFileDTO(ctx, record)
}

// UploadTemp 上传到临时桶并登记，由定时任务配合桶生命周期清理
func (s *contractServiceImpl) UploadTemp(ctx context.Context, userID uint64, fileName string, file io.ReadSeeker, size int64) (string, error) {
	contentType, err := util.GetSafeContentType(file)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, consts.MimePrefixImage) && !strings.HasPrefix(contentType, consts.MimePrefixPDF) {
		return "", ErrFileNotSupported
	}

	objectKey := fmt.Sprintf("tmp/%d/%s%s", userID, uuid.NewString(), filepath.Ext(fileName))
	if _, err := minio.UploadFile(ctx, minio.TempBucket, objectKey, file, size, contentType); err != nil {
		return "", err
	}
	if err := redis.HSet(ctx, consts.FileTempKey, objectKey, strconv.FormatInt(time.Now().Unix(), 10)); err != nil {
		log.Warn("临时文件登记失败", "object", objectKey, "err", err)
	}
	return objectKey, nil
}

func (s *contractServiceImpl) ListFiles(ctx context.Context, userID uint64, isStaff bool, requestID uint64) ([]*dto.ContractFileDTO, error) {
	req, err := s.requestRepo.GetRequestById(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	if !isStaff && req.UserID != userID {
		return nil, UnauthorizedError
	}

	files, err := s.contractRepo.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	res := make([]*dto.ContractFileDTO, 0, len(files))
	for _, f := range files {
		fileDTO, err := s.toContractFileDTO(ctx, f)
		if err != nil {
			return nil, err
		}
		res = append(res, fileDTO)
	}
	return res, nil
}

// SignContract 客户对合同文件署名确认，幂等
func (s *contractServiceImpl) SignContract(ctx context.Context, userID uint64, fileID uint64) error {
	file, err := s.contractRepo.GetFileById(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return ErrFileNotExist
	}
	req, err := s.requestRepo.GetRequestById(ctx, file.RequestID)
	if err != nil {
		return err
	}
	if req == nil || req.UserID != userID {
		return UnauthorizedError
	}

	_, err = s.contractRepo.MarkSigned(ctx, fileID)
	return err
}

func (s *contractServiceImpl) DeleteFile(ctx context.Context, fileID uint64) error {
	file, err := s.contractRepo.GetFileById(ctx, fileID)
	if err != nil {
		return err
	}
	if file == nil {
		return ErrFileNotExist
	}

	if err := minio.DeleteFile(ctx, minio.MainBucket, file.ObjectKey); err != nil {
		log.Error("删除对象失败", "object", file.ObjectKey, "err", err)
	}
	if file.ThumbKey != nil {
		if err := minio.DeleteFile(ctx, minio.MainBucket, *file.ThumbKey); err != nil {
			log.Error("删除缩略图失败", "object", *file.ThumbKey, "err", err)
		}
	}
	return s.contractRepo.DeleteFile(ctx, fileID)
}

// fileURL 公共读桶直接拼外链，否则走限时签名地址
func fileURL(ctx context.Context, objectKey string) (string, error) {
	if config.Cfg != nil && config.Cfg.MinIO.UsePublicLink {
		return minio.GetPublicURL(objectKey), nil
	}
	return minio.PresignedURL(ctx, objectKey, presignedExpiry)
}

func (s *contractServiceImpl) toContractFileDTO(ctx context.Context, file *model.ContractFile) (*dto.ContractFileDTO, error) {
	url, err := fileURL(ctx, file.ObjectKey)
	if err != nil {
		return nil, err
	}
	fileDTO := &dto.ContractFileDTO{
		ID:        file.ID,
		RequestID: file.RequestID,
		FileName:  file.FileName,
		FileType:  file.FileType,
		URL:       url,
		Size:      file.Size,
		IsSigned:  file.IsSigned,
		SignedAt:  file.SignedAt,
		CreatedAt: file.CreatedAt,
	}
	if file.ThumbKey != nil {
		thumbURL, err := fileURL(ctx, *file.ThumbKey)
		if err == nil {
			fileDTO.ThumbURL = &thumbURL
		}
	}
	return fileDTO, nil
}
