package service

import "errors"

var (
	// ErrInputUnreadable 源图无法解码
	ErrInputUnreadable = errors.New("input unreadable")
	// ErrNoImagesFound 合成目录中没有可识别的图片
	ErrNoImagesFound = errors.New("no images found")
	// ErrDecodeFailure 合成目录中的某个文件无法解码
	ErrDecodeFailure = errors.New("decode failure")
	ErrSizeMismatch  = errors.New("image size mismatch")
	ErrOutputWrite   = errors.New("output write failed")
)
