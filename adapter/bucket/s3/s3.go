package s3

import (
	"bytes"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	awss3 "github.com/aws/aws-sdk-go/service/s3"
	"github.com/fundprospect/prospectus-pipeline/adapter/bucket"
)

// long term archival for retrieved prospectus documents
type s3Bucket struct {
	name   string
	client *awss3.S3
}

func New(awsSession *session.Session, name string) *s3Bucket {
	return &s3Bucket{client: awss3.New(awsSession), name: name}
}

func (b *s3Bucket) GetObject(key string) ([]byte, error) {
	out, err := b.client.GetObject(&awss3.GetObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == awss3.ErrCodeNoSuchKey {
			return nil, bucket.NotFoundErr
		}
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (b *s3Bucket) PutObject(key string, data []byte) error {
	_, err := b.client.PutObject(&awss3.PutObjectInput{
		Bucket: aws.String(b.name),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (b *s3Bucket) ListObjects(prefix string) ([]string, error) {
	keys := []string{}
	err := b.client.ListObjectsV2Pages(&awss3.ListObjectsV2Input{
		Bucket: aws.String(b.name),
		Prefix: aws.String(prefix),
	}, func(page *awss3.ListObjectsV2Output, last bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	return keys, err
}
