// internal/services/storage_service.go
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/medconnect-backend/internal/config"
	"github.com/javajoker/medconnect-backend/internal/models"
)

var ErrStorageUnavailable = errors.New("file storage is not configured")

type UploadKind string

const (
	UploadKindMedicine     UploadKind = "medicine"
	UploadKindPrescription UploadKind = "prescription"
)

type StorageService struct {
	s3Client s3iface.S3API
	config   config.AWSConfig
}

type UploadResult struct {
	URL          string `json:"url"`
	Key          string `json:"key"`
	Size         int64  `json:"size"`
	MimeType     string `json:"mime_type"`
	PresignedURL string `json:"presigned_url,omitempty"`
}

type UploadOptions struct {
	Folder       string
	MaxSize      int64 // in bytes
	AllowedTypes []string
	IsPublic     bool
}

func NewStorageService(cfg config.AWSConfig) (*StorageService, error) {
	if cfg.AccessKeyID == "" {
		logrus.Warn("AWS credentials not set, uploads are disabled")
		return &StorageService{config: cfg}, nil
	}

	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(cfg.Region),
		Credentials: credentials.NewStaticCredentials(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return NewStorageServiceWithClient(s3.New(sess), cfg), nil
}

func NewStorageServiceWithClient(client s3iface.S3API, cfg config.AWSConfig) *StorageService {
	return &StorageService{s3Client: client, config: cfg}
}

func (s *StorageService) Enabled() bool {
	return s.s3Client != nil
}

// Upload stores an image for a listing or a prescription. Uploaders must be
// sellers for listing images and buyers for prescriptions.
func (s *StorageService) Upload(ctx context.Context, actor models.Actor, kind UploadKind, filename string, size int64, body io.Reader) (*UploadResult, error) {
	if !s.Enabled() {
		return nil, ErrStorageUnavailable
	}

	options, err := uploadOptionsFor(kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case UploadKindMedicine:
		if !actor.Role.CanSell() {
			return nil, fmt.Errorf("%w: only sellers upload listing images", ErrForbidden)
		}
	case UploadKindPrescription:
		if !actor.Role.CanBuy() {
			return nil, fmt.Errorf("%w: only buyers upload prescriptions", ErrForbidden)
		}
	}

	if options.MaxSize > 0 && size > options.MaxSize {
		return nil, validationError("file size %d bytes exceeds maximum allowed size %d bytes", size, options.MaxSize)
	}

	fileBytes, err := io.ReadAll(io.LimitReader(body, options.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if int64(len(fileBytes)) > options.MaxSize {
		return nil, validationError("file exceeds maximum allowed size %d bytes", options.MaxSize)
	}

	contentType := http.DetectContentType(fileBytes)
	if !allowedType(contentType, options.AllowedTypes) {
		return nil, validationError("file type %s is not allowed", contentType)
	}

	key := s.generateKey(filename, options.Folder, actor.ID)
	params := &s3.PutObjectInput{
		Bucket:        aws.String(s.config.S3Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(fileBytes),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(fileBytes))),
	}
	if options.IsPublic {
		params.ACL = aws.String(s3.ObjectCannedACLPublicRead)
	}

	if _, err := s.s3Client.PutObjectWithContext(ctx, params); err != nil {
		return nil, fmt.Errorf("failed to upload to S3: %w", err)
	}

	result := &UploadResult{
		URL:      s.objectURL(key),
		Key:      key,
		Size:     int64(len(fileBytes)),
		MimeType: contentType,
	}
	if !options.IsPublic {
		if presigned, err := s.GeneratePresignedURL(key, 15*time.Minute); err == nil {
			result.PresignedURL = presigned
		} else {
			logrus.WithError(err).WithField("key", key).Warn("Failed to presign upload")
		}
	}

	logrus.WithFields(logrus.Fields{
		"key":     key,
		"kind":    kind,
		"user_id": actor.ID,
		"size":    result.Size,
	}).Info("File uploaded")

	return result, nil
}

func (s *StorageService) GeneratePresignedURL(key string, expiration time.Duration) (string, error) {
	if !s.Enabled() {
		return "", ErrStorageUnavailable
	}

	req, _ := s.s3Client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})

	url, err := req.Presign(expiration)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

func uploadOptionsFor(kind UploadKind) (UploadOptions, error) {
	switch kind {
	case UploadKindMedicine:
		return UploadOptions{
			Folder:       "medicines",
			MaxSize:      5 * 1024 * 1024, // 5MB
			AllowedTypes: []string{"image/jpeg", "image/png", "image/webp"},
			IsPublic:     true,
		}, nil
	case UploadKindPrescription:
		return UploadOptions{
			Folder:       "prescriptions",
			MaxSize:      10 * 1024 * 1024, // 10MB
			AllowedTypes: []string{"image/jpeg", "image/png", "application/pdf"},
			IsPublic:     false,
		}, nil
	}
	return UploadOptions{}, validationError("unknown upload kind %q", kind)
}

func allowedType(contentType string, allowed []string) bool {
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	for _, t := range allowed {
		if mediaType == t {
			return true
		}
	}
	return false
}

func (s *StorageService) generateKey(originalName, folder string, ownerID uuid.UUID) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s/%s/%s_%s%s", folder, ownerID, timestamp, uuid.New().String()[:8], ext)
}

func (s *StorageService) objectURL(key string) string {
	if s.config.CloudFrontURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(s.config.CloudFrontURL, "/"), key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.S3Bucket, s.config.Region, key)
}
