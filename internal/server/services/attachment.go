package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/netx"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	sc "github.com/dmitrijs2005/rechub/internal/server/config"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignValidity is how long upload and download URLs stay usable.
const PresignValidity = 15 * time.Minute

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// UploadTicket lets a client PUT a file straight to object storage and
// later hand DownloadURL to the dispatcher as an attachment.
type UploadTicket struct {
	Key         string    `json:"key"`
	UploadURL   string    `json:"uploadUrl"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

type AttachmentService struct {
	config *sc.Config
}

func NewAttachmentService(config *sc.Config) *AttachmentService {
	return &AttachmentService{config: config}
}

// GetRandomStorageKey returns attachments/yyyy/m/d/<uuid>/<name>.
func GetRandomStorageKey(now time.Time, filename string) string {
	return fmt.Sprintf("attachments/%d/%d/%d/%v/%s", now.Year(), int(now.Month()), now.Day(), uuid.New(), cleanFilename(filename))
}

func cleanFilename(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "" || name == "." || name == "/" || name == ".." {
		return netx.DefaultAttachmentName
	}
	return name
}

func (s *AttachmentService) getPresignClient(ctx context.Context) (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3PresignClient(client), nil
}

// PresignUpload issues a fresh storage key with PUT and GET URLs for it.
func (s *AttachmentService) PresignUpload(ctx context.Context, caller auth.Identity, filename string) (*UploadTicket, error) {
	if err := requireStaff(caller); err != nil {
		return nil, err
	}
	if !s.config.StorageConfigured() {
		return nil, fmt.Errorf("%w: object storage is not configured", common.ErrUnconfigured)
	}

	presignClient, err := s.getPresignClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrUnavailable, err)
	}

	now := time.Now()
	bucket := s.config.S3Bucket
	key := GetRandomStorageKey(now, filename)

	put, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return nil, fmt.Errorf("presign put: %w", err)
	}

	get, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(PresignValidity))
	if err != nil {
		return nil, fmt.Errorf("presign get: %w", err)
	}

	return &UploadTicket{Key: key, UploadURL: put.URL, DownloadURL: get.URL, ExpiresAt: now.Add(PresignValidity)}, nil
}
