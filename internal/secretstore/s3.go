package secretstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/PolarWolf314/cloudencrypt/internal/cloud"
	kerrors "github.com/PolarWolf314/cloudencrypt/internal/errors"
)

const defaultS3Prefix = "secrets"

// S3Store keeps each secret as one JSON object in an S3 compatible bucket:
//
//	bucket/
//	└── [prefix/]<name>.json
type S3Store struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewS3Store wraps an existing client and makes sure the bucket exists.
func NewS3Store(ctx context.Context, client *minio.Client, bucket, prefix string) (*S3Store, error) {
	s := &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// openS3 requires "endpoint" and "bucket". An http:// endpoint disables TLS
// as does secure=false. "accessKey" and "secretKey" default to the standard
// AWS environment variables. "prefix" defaults to "secrets".
func openS3(ctx context.Context, cfg cloud.Config) (Store, error) {
	endpoint, err := cfg.Required("endpoint")
	if err != nil {
		return nil, err
	}
	bucket, err := cfg.Required("bucket")
	if err != nil {
		return nil, err
	}
	host, secure, err := s3Endpoint(endpoint, cfg.GetOr("secure", ""))
	if err != nil {
		return nil, err
	}

	creds := credentials.NewEnvAWS()
	if ak, ok := cfg.Get("accessKey"); ok {
		creds = credentials.NewStaticV4(ak, cfg.GetOr("secretKey", ""), "")
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  creds,
		Secure: secure,
		Region: cfg.GetOr("region", ""),
	})
	if err != nil {
		return nil, kerrors.Provider("s3", "create client", err)
	}
	return NewS3Store(ctx, client, bucket, cfg.GetOr("prefix", defaultS3Prefix))
}

// s3Endpoint strips the scheme minio.New does not accept and decides on TLS.
func s3Endpoint(endpoint, secureSetting string) (string, bool, error) {
	secure := true
	host := endpoint
	switch {
	case strings.HasPrefix(endpoint, "http://"):
		host, secure = strings.TrimPrefix(endpoint, "http://"), false
	case strings.HasPrefix(endpoint, "https://"):
		host = strings.TrimPrefix(endpoint, "https://")
	}
	host = strings.TrimSuffix(host, "/")
	if secureSetting != "" {
		v, err := strconv.ParseBool(secureSetting)
		if err != nil {
			return "", false, fmt.Errorf("%w: s3 secure=%q", kerrors.ErrInvalidSetting, secureSetting)
		}
		secure = v
	}
	return host, secure, nil
}

func (s *S3Store) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return kerrors.Provider("s3", "check bucket", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return kerrors.Provider("s3", "create bucket", err)
		}
	}
	return nil
}

func (s *S3Store) objectName(name string) string {
	if s.prefix == "" {
		return name + ".json"
	}
	return path.Join(s.prefix, name+".json")
}

func (s *S3Store) Put(ctx context.Context, name string, data []byte, metadata map[string]string) error {
	body, err := Encode(data, metadata)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectName(name), bytes.NewReader(body), int64(len(body)),
		minio.PutObjectOptions{ContentType: "application/json"})
	return kerrors.Provider("s3", "put object", err)
}

func (s *S3Store) Get(ctx context.Context, name string) (Record, error) {
	object, err := s.client.GetObject(ctx, s.bucket, s.objectName(name), minio.GetObjectOptions{})
	if err != nil {
		if isNoSuchKey(err) {
			return Record{}, notFound(name)
		}
		return Record{}, kerrors.Provider("s3", "get object", err)
	}
	defer object.Close()

	// GetObject is lazy; a missing key surfaces on the first read.
	raw, err := io.ReadAll(object)
	if err != nil {
		if isNoSuchKey(err) {
			return Record{}, notFound(name)
		}
		return Record{}, kerrors.Provider("s3", "read object", err)
	}
	return Decode(raw)
}

func (s *S3Store) Delete(ctx context.Context, name string) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectName(name), minio.RemoveObjectOptions{})
	if err != nil && !isNoSuchKey(err) {
		return kerrors.Provider("s3", "remove object", err)
	}
	return nil
}

func (s *S3Store) Close() error { return nil }

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}
