package document

import (
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3 loads an object from an S3 compatible bucket
type S3 struct {
	bucket string
	key    string
	client *s3.Client
}

var _ Loader = (*S3)(nil)

type S3Option func(*S3)

func WithS3Bucket(bucket string) S3Option {
	return func(s *S3) {
		s.bucket = bucket
	}
}

func WithS3Key(key string) S3Option {
	return func(s *S3) {
		s.key = key
	}
}

func WithS3Client(clt *s3.Client) S3Option {
	return func(s *S3) {
		s.client = clt
	}
}

func NewS3(opts ...S3Option) *S3 {
	ret := new(S3)
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

func (s *S3) Name() string {
	base := path.Base(s.key)
	return strings.TrimSuffix(base, path.Ext(base))
}

func (s *S3) Load(ctx context.Context) (*Document, error) {
	headObjOutput, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object metadata: %w", err)
	}
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}
	defer resp.Body.Close()
	bs, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	meta := map[string]string{
		"source": "s3",
		"bucket": s.bucket,
		"key":    s.key,
	}
	if headObjOutput.ContentLength != nil {
		meta["size"] = strconv.FormatInt(*headObjOutput.ContentLength, 10)
	}
	if headObjOutput.LastModified != nil {
		meta["modtime"] = strconv.FormatInt(headObjOutput.LastModified.Unix(), 10)
	}
	if headObjOutput.ContentType != nil {
		meta["content_type"] = *headObjOutput.ContentType
	}
	return New(s.Name(), bs, meta), nil
}
