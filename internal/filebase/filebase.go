// SPDX-License-Identifier: AGPL-3.0-only
package filebase

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/fluffyriot/rtsync/internal/config"
	"github.com/fluffyriot/rtsync/internal/logging"
)

// Store mirrors the worker's state files to an S3-compatible bucket so the
// bot survives losing its local disk. Every operation is best-effort and
// reports a plain success flag.
type Store struct {
	client *s3.Client
	bucket string
	log    zerolog.Logger
}

func NewStore(ctx context.Context, cfg *config.AppConfig) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("us-east-1"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.FilebaseKey, cfg.FilebaseSecret, ""),
		),
	)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.FilebaseEndpoint)
		o.UsePathStyle = true
	})

	return &Store{
		client: client,
		bucket: cfg.FilebaseBucket,
		log:    logging.Component("filebase"),
	}, nil
}

// Upload pushes a local file to the bucket under its base name.
func (s *Store) Upload(ctx context.Context, localPath string) bool {
	file, err := os.Open(localPath)
	if err != nil {
		s.log.Info().Err(err).Str("file", localPath).Msg("Failure uploading file")
		return false
	}
	defer file.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filepath.Base(localPath)),
		Body:   file,
	})
	if err != nil {
		s.log.Info().Err(err).Str("file", localPath).Msg("Failure uploading file")
		return false
	}

	s.log.Info().Str("file", localPath).Msg("Uploaded file successfully")
	return true
}

// Download fetches a bucket object into the given local path.
func (s *Store) Download(ctx context.Context, remoteName, localPath string) bool {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filepath.Base(remoteName)),
	})
	if err != nil {
		s.log.Info().Err(err).Str("file", remoteName).Msg("Failure downloading file")
		return false
	}
	defer result.Body.Close()

	file, err := os.Create(localPath)
	if err != nil {
		s.log.Info().Err(err).Str("file", localPath).Msg("Failure downloading file")
		return false
	}
	defer file.Close()

	if _, err := io.Copy(file, result.Body); err != nil {
		s.log.Info().Err(err).Str("file", localPath).Msg("Failure downloading file")
		return false
	}

	s.log.Info().Str("file", localPath).Msg("Downloaded file successfully")
	return true
}
