package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/metrics"
)

const firestoreCacheCollection = "mapCache"

// FirestoreCacheEntry Firestoreに保存するキャッシュ文書
type FirestoreCacheEntry struct {
	Key       string    `firestore:"key"`
	Value     []byte    `firestore:"value"`
	CreatedAt time.Time `firestore:"created_at"`
	ExpiresAt time.Time `firestore:"expires_at"`
}

// FirestoreCacheRepository Firestoreを使ったTTL付きキャッシュ
// expires_at にTTLポリシーを設定しておけば期限切れ文書はFirestore側でも削除される
type FirestoreCacheRepository struct {
	client *firestore.Client
}

func NewFirestoreCacheRepository(client *firestore.Client) repository.CacheRepository {
	return &FirestoreCacheRepository{client: client}
}

// firestoreDocID 文書IDに使えない "/" を置き換える
func firestoreDocID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

func (r *FirestoreCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	doc, err := r.client.Collection(firestoreCacheCollection).Doc(firestoreDocID(key)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			metrics.CacheRequestsTotal.WithLabelValues("firestore", "miss").Inc()
			return nil, repository.ErrCacheMiss
		}
		metrics.CacheRequestsTotal.WithLabelValues("firestore", "error").Inc()
		return nil, fmt.Errorf("キャッシュ文書の取得に失敗しました: %w", err)
	}

	var entry FirestoreCacheEntry
	if err := doc.DataTo(&entry); err != nil {
		return nil, fmt.Errorf("データの変換に失敗しました: %w", err)
	}
	if !entry.ExpiresAt.IsZero() && !time.Now().Before(entry.ExpiresAt) {
		metrics.CacheRequestsTotal.WithLabelValues("firestore", "expired").Inc()
		return nil, repository.ErrCacheMiss
	}

	metrics.CacheRequestsTotal.WithLabelValues("firestore", "hit").Inc()
	return entry.Value, nil
}

func (r *FirestoreCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	now := time.Now()
	entry := FirestoreCacheEntry{Key: key, Value: value, CreatedAt: now}
	if ttl > 0 {
		entry.ExpiresAt = now.Add(ttl)
	}
	if _, err := r.client.Collection(firestoreCacheCollection).Doc(firestoreDocID(key)).Set(ctx, entry); err != nil {
		return fmt.Errorf("キャッシュ文書の保存に失敗しました: %w", err)
	}
	return nil
}

func (r *FirestoreCacheRepository) Delete(ctx context.Context, key string) error {
	_, err := r.client.Collection(firestoreCacheCollection).Doc(firestoreDocID(key)).Delete(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return fmt.Errorf("キャッシュ文書の削除に失敗しました: %w", err)
	}
	return nil
}
