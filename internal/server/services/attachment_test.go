package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/rechub/internal/common"
	"github.com/dmitrijs2005/rechub/internal/server/auth"
	sc "github.com/dmitrijs2005/rechub/internal/server/config"
	"github.com/dmitrijs2005/rechub/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	coach       = auth.Identity{UserID: "c1", Email: "coach@x.org", Role: models.RoleCoach}
	admin       = auth.Identity{UserID: "a1", Email: "root@x.org", Role: models.RoleAdmin}
	participant = auth.Identity{UserID: "p1", Email: "pat@x.org", Role: models.RoleParticipant}
	guest       = auth.Identity{}
)

func newAttachmentService() *AttachmentService {
	return NewAttachmentService(&sc.Config{
		S3Region:       "us-east-1",
		S3RootUser:     "minioadmin",
		S3RootPassword: "minioadmin",
		S3BaseEndpoint: "http://127.0.0.1:9000",
		S3Bucket:       "rechub",
	})
}

// stubPresign replaces every AWS seam and restores them on cleanup.
func stubPresign(t *testing.T, putErr, getErr error) {
	t.Helper()
	origLoad, origNewS3, origNewPre := loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient
	origPut, origGet := presignPutObject, presignGetObject
	t.Cleanup(func() {
		loadDefaultAWSConfig, newS3ClientFromConfig, newS3PresignClient = origLoad, origNewS3, origNewPre
		presignPutObject, presignGetObject = origPut, origGet
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client { return &s3.Client{} }
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if putErr != nil {
			return nil, putErr
		}
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/put/" + *in.Key}, nil
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		if getErr != nil {
			return nil, getErr
		}
		return &v4.PresignedHTTPRequest{URL: "https://s3.local/get/" + *in.Key}, nil
	}
}

func Test_getPresignClient_SuccessAndError(t *testing.T) {
	svc := newAttachmentService()

	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		require.NotNil(t, c)
		return &s3.PresignClient{}
	}

	pc, err := svc.getPresignClient(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, pc)
	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}
	_, err = svc.getPresignClient(context.Background())
	assert.EqualError(t, err, "load-fail")
}

func TestPresignUpload_Success(t *testing.T) {
	stubPresign(t, nil, nil)

	ticket, err := newAttachmentService().PresignUpload(context.Background(), coach, `C:\docs\flyer.pdf`)
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^attachments/\d{4}/\d{1,2}/\d{1,2}/[0-9a-f-]{36}/flyer\.pdf$`), ticket.Key)
	assert.Equal(t, "https://s3.local/put/"+ticket.Key, ticket.UploadURL)
	assert.Equal(t, "https://s3.local/get/"+ticket.Key, ticket.DownloadURL)
	assert.WithinDuration(t, time.Now().Add(PresignValidity), ticket.ExpiresAt, 5*time.Second)
}

func TestPresignUpload_Errors(t *testing.T) {
	t.Run("guest", func(t *testing.T) {
		_, err := newAttachmentService().PresignUpload(context.Background(), guest, "a.txt")
		assert.ErrorIs(t, err, common.ErrUnauthenticated)
	})

	t.Run("participant", func(t *testing.T) {
		_, err := newAttachmentService().PresignUpload(context.Background(), participant, "a.txt")
		assert.ErrorIs(t, err, common.ErrPermissionDenied)
	})

	t.Run("storage not configured", func(t *testing.T) {
		svc := NewAttachmentService(&sc.Config{S3Bucket: "b"})
		_, err := svc.PresignUpload(context.Background(), admin, "a.txt")
		assert.ErrorIs(t, err, common.ErrUnconfigured)
	})

	t.Run("put presign fails", func(t *testing.T) {
		stubPresign(t, errors.New("put-fail"), nil)
		_, err := newAttachmentService().PresignUpload(context.Background(), admin, "a.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "put-fail")
	})

	t.Run("get presign fails", func(t *testing.T) {
		stubPresign(t, nil, errors.New("get-fail"))
		_, err := newAttachmentService().PresignUpload(context.Background(), admin, "a.txt")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "get-fail")
	})
}

func TestGetRandomStorageKey(t *testing.T) {
	now := time.Date(2026, time.March, 7, 0, 0, 0, 0, time.UTC)

	k1 := GetRandomStorageKey(now, "a.pdf")
	k2 := GetRandomStorageKey(now, "a.pdf")
	assert.True(t, strings.HasPrefix(k1, "attachments/2026/3/7/"))
	assert.NotEqual(t, k1, k2)

	assert.True(t, strings.HasSuffix(GetRandomStorageKey(now, ""), "/attachment"))
	assert.True(t, strings.HasSuffix(GetRandomStorageKey(now, "../../etc/passwd"), "/passwd"))
}
