package repository

import "errors"

// ErrStoreWrite 写入镜像表失败，由调用方决定是否重试
var ErrStoreWrite = errors.New("repository: store write failed")
