// Package signals fetches and resolves symphony target-allocation files.
package signals

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/joshwigginton/composer-signals-alpaca/internal/domain"
)

// S3SourceConfig holds the location of the signal file in cloud storage
type S3SourceConfig struct {
	Bucket          string
	Key             string
	Region          string
	CredentialsFile string // Shared credentials file path; default chain when empty
	AccessKeyID     string // Static credentials; used only when both are set
	SecretAccessKey string
}

// S3Source downloads the signal file from an S3 bucket.
// Implements domain.SignalSource.
type S3Source struct {
	cfg S3SourceConfig
	log zerolog.Logger
}

// NewS3Source creates a signal source reading from cloud storage
func NewS3Source(cfg S3SourceConfig, log zerolog.Logger) *S3Source {
	return &S3Source{
		cfg: cfg,
		log: log.With().Str("component", "signal_source").Logger(),
	}
}

// Fetch downloads the signal file and returns its raw bytes
func (s *S3Source) Fetch(ctx context.Context) ([]byte, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(s.cfg.Region),
	}
	if s.cfg.AccessKeyID != "" && s.cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.cfg.AccessKeyID, s.cfg.SecretAccessKey, "")))
	} else if s.cfg.CredentialsFile != "" {
		opts = append(opts, awsconfig.WithSharedCredentialsFiles([]string{s.cfg.CredentialsFile}))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: loading cloud storage credentials: %v", domain.ErrAuth, err)
	}

	client := s3.NewFromConfig(awsCfg)
	downloader := manager.NewDownloader(client)

	buf := manager.NewWriteAtBuffer(nil)
	n, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(s.cfg.Key),
	})
	if err != nil {
		if isAuthError(err) {
			return nil, fmt.Errorf("%w: downloading s3://%s/%s: %v", domain.ErrAuth, s.cfg.Bucket, s.cfg.Key, err)
		}
		return nil, fmt.Errorf("downloading s3://%s/%s: %w", s.cfg.Bucket, s.cfg.Key, err)
	}

	s.log.Debug().
		Str("bucket", s.cfg.Bucket).
		Str("key", s.cfg.Key).
		Int64("bytes", n).
		Msg("Signal file downloaded")

	return buf.Bytes(), nil
}

// isAuthError classifies S3 failures caused by bad or missing credentials.
// The SDK has no single error type for these, so match on the API error codes.
func isAuthError(err error) bool {
	msg := err.Error()
	for _, code := range []string{
		"AccessDenied",
		"InvalidAccessKeyId",
		"SignatureDoesNotMatch",
		"ExpiredToken",
		"failed to retrieve credentials",
	} {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// FileSource reads the signal file from local disk. Used for development runs
// and tests. Implements domain.SignalSource.
type FileSource struct {
	Path string
}

// Fetch reads the signal file from disk
func (f *FileSource) Fetch(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading signal file %s: %w", f.Path, err)
	}
	return data, nil
}
