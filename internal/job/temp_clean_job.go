package job

import (
	"context"
	log "log/slog"
	"strconv"
	"time"

	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/consts"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/minio"
	"github.com/lumbra2004/ryanswebservices-sub000/internal/pkg/redis"
)

// TempCleanJob 清理临时桶中的过期上传
// 对象本身由桶生命周期规则兜底删除，这里负责登记表与对象的同步清理
type TempCleanJob struct{}

func NewTempCleanJob() *TempCleanJob {
	return &TempCleanJob{}
}

func (s *TempCleanJob) Run() {
	ctx := context.Background()
	log.Info("start temp file cleanup job")

	entries, err := redis.HGetAll(ctx, consts.FileTempKey)
	if err != nil {
		log.Error("failed to get temp file hash", "err", err)
		return
	}

	now := time.Now().Unix()
	expiration := int64(24 * 60 * 60)
	count := 0

	for objectKey, val := range entries {
		createdAt, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			log.Warn("invalid temp file timestamp", "objectKey", objectKey)
			_ = redis.HDel(ctx, consts.FileTempKey, objectKey)
			continue
		}

		if now-createdAt > expiration {
			if err = minio.DeleteFile(ctx, minio.TempBucket, objectKey); err != nil {
				log.Error("failed to delete expired temp file", "objectKey", objectKey, "err", err)
				continue
			}

			if err = redis.HDel(ctx, consts.FileTempKey, objectKey); err != nil {
				log.Error("failed to remove temp file entry", "objectKey", objectKey, "err", err)
			}

			count++
		}
	}

	if count > 0 {
		log.Info("temp file cleanup job finished", "cleaned_count", count)
	}
}
