package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/minio/minio-go/v7"

	commonlog "studyhub/server/common/log"
	"studyhub/server/domain"
)

const presignTTL = 15 * time.Minute

// FileService hands out presigned object-store URLs; the binary bytes never
// pass through this process, only URL/metadata records do.
type FileService struct {
	client *minio.Client
	bucket string
}

func NewFileService(client *minio.Client, bucket string) *FileService {
	return &FileService{client: client, bucket: bucket}
}

func (s *FileService) PresignUpload(ctx context.Context, userID, fileName string) (string, string, error) {
	key := objectKey(userID, fileName)
	u, err := s.client.PresignedPutObject(ctx, s.bucket, key, presignTTL)
	if err != nil {
		return "", "", err
	}
	return u.String(), key, nil
}

func (s *FileService) PresignDownload(ctx context.Context, key string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, presignTTL, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// DescribeUpload builds the file descriptor stored on notes and messages,
// generating a thumbnail for image uploads. Thumbnail failures are logged
// and the descriptor is returned without one.
func (s *FileService) DescribeUpload(ctx context.Context, key, name, mimeType string, size int64) domain.FileRef {
	ref := domain.FileRef{
		URL:        key,
		Name:       name,
		MimeType:   mimeType,
		Size:       size,
		UploadedAt: time.Now().UTC(),
	}
	if strings.HasPrefix(mimeType, "image/") {
		thumbKey, err := s.makeThumbnail(ctx, key)
		if err != nil {
			commonlog.Warnf("event=file_thumbnail status=failed key=%s error=%v", key, err)
		} else {
			ref.ThumbnailURL = thumbKey
		}
	}
	return ref
}

func (s *FileService) makeThumbnail(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()

	img, _, err := image.Decode(obj)
	if err != nil {
		return "", err
	}
	thumb := imaging.Thumbnail(img, 320, 320, imaging.Lanczos)
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, thumb, imaging.JPEG); err != nil {
		return "", err
	}

	ext := filepath.Ext(key)
	thumbKey := strings.TrimSuffix(key, ext) + "_thumb.jpg"
	reader := bytes.NewReader(buf.Bytes())
	if _, err := s.client.PutObject(ctx, s.bucket, thumbKey, reader, int64(reader.Len()), minio.PutObjectOptions{ContentType: "image/jpeg"}); err != nil {
		return "", fmt.Errorf("upload thumbnail: %w", err)
	}
	return thumbKey, nil
}

func objectKey(userID, fileName string) string {
	cleaned := strings.TrimPrefix(strings.TrimSpace(fileName), "/")
	return fmt.Sprintf("uploads/%s/%d_%s", userID, time.Now().UnixNano(), cleaned)
}
