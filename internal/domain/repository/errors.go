package repository

import "errors"

var (
	// ErrNotFound 対象のデータが存在しない
	ErrNotFound = errors.New("データが見つかりません")
	// ErrCacheMiss キャッシュに値がない
	ErrCacheMiss = errors.New("キャッシュに存在しません")
)
