package fault

import "errors"

var (
	ErrRecordNotFound     = errors.New("record not found")
	ErrBucketNotFound     = errors.New("bucket not found")
	ErrBucketCreateFailed = errors.New("bucket create failed")
	ErrUnmarshalFailed    = errors.New("unmarshal failed")
	ErrMarshalFailed      = errors.New("marshal failed")
	ErrNilRecord          = errors.New("nil record")
	ErrPutFailed          = errors.New("put failed")
	ErrIndexUpdateFailed  = errors.New("index update failed")
	ErrUniqueConstraint   = errors.New("unique constraint violation")
	ErrStoreClosed        = errors.New("store closed")
)
