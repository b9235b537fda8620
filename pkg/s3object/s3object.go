// Package s3object wraps the S3-compatible object store used as the
// storage site for blobs larger than the small-blob threshold. Objects
// are keyed by content hash under "<dataset>/<hash>" in a single fixed
// bucket, so a PUT by content hash is safe to race: two concurrent PUTs
// of the same bytes converge on the same key.
package s3object

import (
	"bytes"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/liquidinvestigations/hoover4/pkg/blob"
)

// Store is a thin wrapper over an S3-compatible bucket.
type Store struct {
	client   *s3.S3
	uploader *s3manager.Uploader
	bucket   string
}

// Config describes how to reach the object store.
type Config struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Open builds an S3 client pointed at a MinIO-compatible endpoint.
func Open(cfg Config) (*Store, error) {
	scheme := "http://"
	if cfg.UseSSL {
		scheme = "https://"
	}
	sess, err := session.NewSession(&aws.Config{
		Credentials:      credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""),
		Endpoint:         aws.String(scheme + cfg.Endpoint),
		Region:           aws.String("us-east-1"),
		S3ForcePathStyle: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("s3object: session: %w", err)
	}
	return &Store{
		client:   s3.New(sess),
		uploader: s3manager.NewUploader(sess),
		bucket:   cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket if it does not already exist, ignoring
// the "already owned by you" race.
func (s *Store) EnsureBucket() error {
	_, err := s.client.HeadBucket(&s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	if err == nil {
		return nil
	}
	_, err = s.client.CreateBucket(&s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	if err != nil {
		if awsErrCode(err) == "BucketAlreadyOwnedByYou" || awsErrCode(err) == "BucketAlreadyExists" {
			return nil
		}
		return fmt.Errorf("s3object: creating bucket: %w", err)
	}
	return nil
}

// Key returns the object key a blob is stored under.
func Key(dataset string, hash blob.Ref) string {
	return dataset + "/" + hash.String()
}

// URI returns the s3://<bucket>/<dataset>/<hash> locator persisted on the
// blobs row.
func (s *Store) URI(dataset string, hash blob.Ref) string {
	return "s3://" + s.bucket + "/" + Key(dataset, hash)
}

// Put uploads r's bytes to the object keyed by (dataset, hash). Puts are
// idempotent: re-uploading identical content is a safe no-op in effect,
// since object keys are derived from content hash.
func (s *Store) Put(dataset string, hash blob.Ref, r io.Reader) error {
	_, err := s.uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(dataset, hash)),
		Body:   r,
	})
	return err
}

// Get downloads the object for (dataset, hash) into w, returning the
// number of bytes written.
func (s *Store) Get(dataset string, hash blob.Ref, w io.WriterAt) (int64, error) {
	downloader := s3manager.NewDownloaderWithClient(s.client)
	return downloader.Download(w, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(dataset, hash)),
	})
}

// GetBytes downloads the object for (dataset, hash) fully into memory.
func (s *Store) GetBytes(dataset string, hash blob.Ref) ([]byte, error) {
	out, err := s.client.GetObject(&s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(Key(dataset, hash)),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func awsErrCode(err error) string {
	type codeErr interface{ Code() string }
	if ce, ok := err.(codeErr); ok {
		return ce.Code()
	}
	return ""
}
