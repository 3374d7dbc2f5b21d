package bucket

import "errors"

type Bucket interface {
	GetObject(key string) ([]byte, error)
	PutObject(key string, data []byte) error
	ListObjects(prefix string) ([]string, error)
}

var NotFoundErr error = errors.New("Object not found")
