package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/metrics"
)

// DrilldownOptions サイドバー読み込みの調整値
type DrilldownOptions struct {
	PageSize       int
	BatchSize      int
	BatchInterval  time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	CacheTTL       time.Duration
}

// DefaultDrilldownOptions 10件ずつ、2件ごとのバッチを1秒間隔、3回までリトライ、24時間キャッシュ
func DefaultDrilldownOptions() DrilldownOptions {
	return DrilldownOptions{
		PageSize:       10,
		BatchSize:      2,
		BatchInterval:  time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
		CacheTTL:       24 * time.Hour,
	}
}

func (o DrilldownOptions) withDefaults() DrilldownOptions {
	d := DefaultDrilldownOptions()
	if o.PageSize <= 0 {
		o.PageSize = d.PageSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = d.MaxAttempts
	}
	if o.InitialBackoff < 0 {
		o.InitialBackoff = 0
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = d.CacheTTL
	}
	return o
}

// RecordCacheKey 観測詳細のキャッシュキー
func RecordCacheKey(id string) string {
	return "record:" + id
}

// DrilldownLoader 選択されたセルの観測詳細をページ単位で読み込む
type DrilldownLoader struct {
	records repository.RecordsRepository
	cache   repository.CacheRepository
	opts    DrilldownOptions
	limiter *rate.Limiter

	// loadMu LoadMore を直列化する
	loadMu sync.Mutex

	mu     sync.Mutex
	ids    []string
	cursor int
	loaded []model.ObservationRecord
	failed int
}

// NewDrilldownLoader セル内の観測ID一覧から読み込み器を作成。cache は nil でもよい
func NewDrilldownLoader(ids []string, records repository.RecordsRepository, cache repository.CacheRepository, opts DrilldownOptions) *DrilldownLoader {
	opts = opts.withDefaults()
	limit := rate.Inf
	if opts.BatchInterval > 0 {
		limit = rate.Every(opts.BatchInterval)
	}
	idsCopy := make([]string, len(ids))
	copy(idsCopy, ids)
	return &DrilldownLoader{
		records: records,
		cache:   cache,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		ids:     idsCopy,
	}
}

// HasMore まだ読み込んでいないIDが残っているか
func (l *DrilldownLoader) HasMore() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor < len(l.ids)
}

// Records これまでに読み込んだ観測詳細
func (l *DrilldownLoader) Records() []model.ObservationRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.ObservationRecord, len(l.loaded))
	copy(out, l.loaded)
	return out
}

// Failed リトライしても取得できなかった件数
func (l *DrilldownLoader) Failed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Total セル内の観測数
func (l *DrilldownLoader) Total() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}

// LoadMore 次のページを読み込み、そのページで取得できた詳細を返す
// 個別の取得失敗は結果から除くだけで、エラーを返すのは ctx が終了したときのみ
func (l *DrilldownLoader) LoadMore(ctx context.Context) ([]model.ObservationRecord, error) {
	l.loadMu.Lock()
	defer l.loadMu.Unlock()

	l.mu.Lock()
	start := l.cursor
	end := start + l.opts.PageSize
	if end > len(l.ids) {
		end = len(l.ids)
	}
	page := l.ids[start:end]
	l.mu.Unlock()

	if len(page) == 0 {
		return []model.ObservationRecord{}, nil
	}

	log.Infof("📄 観測詳細の読み込み開始: %d-%d / %d件", start+1, end, len(l.ids))
	collected := make([]model.ObservationRecord, 0, len(page))

	for i := 0; i < len(page); i += l.opts.BatchSize {
		j := i + l.opts.BatchSize
		if j > len(page) {
			j = len(page)
		}
		batch := page[i:j]

		if err := l.limiter.Wait(ctx); err != nil {
			return collected, fmt.Errorf("バッチ待機の中断: %w", err)
		}

		fetched, failed, err := l.fetchBatch(ctx, batch)
		if err != nil {
			return collected, err
		}
		collected = append(collected, fetched...)

		l.mu.Lock()
		l.cursor += len(batch)
		l.loaded = append(l.loaded, fetched...)
		l.failed += failed
		l.mu.Unlock()
	}

	log.Infof("✅ 観測詳細の読み込み完了: %d件取得", len(collected))
	return collected, nil
}

// fetchBatch バッチ内のIDを並行して取得する。順序は入力どおり
func (l *DrilldownLoader) fetchBatch(ctx context.Context, batch []string) ([]model.ObservationRecord, int, error) {
	results := make([]*model.ObservationRecord, len(batch))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range batch {
		i, id := i, id
		g.Go(func() error {
			rec, err := l.fetchOne(gctx, id)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metrics.DrilldownFetchTotal.WithLabelValues("failed").Inc()
				log.Warnf("⚠️ 観測詳細の取得失敗 (id=%s): %v", id, err)
				return nil
			}
			results[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("観測詳細の読み込み中断: %w", err)
	}

	out := make([]model.ObservationRecord, 0, len(batch))
	failed := 0
	for _, rec := range results {
		if rec == nil {
			failed++
			continue
		}
		out = append(out, *rec)
	}
	return out, failed, nil
}

// fetchOne キャッシュを優先し、なければ指数バックオフでリトライしながら取得する
func (l *DrilldownLoader) fetchOne(ctx context.Context, id string) (*model.ObservationRecord, error) {
	if rec, ok := l.fromCache(ctx, id); ok {
		metrics.DrilldownFetchTotal.WithLabelValues("cache_hit").Inc()
		return rec, nil
	}

	backoff := l.opts.InitialBackoff
	var lastErr error
	for attempt := 1; attempt <= l.opts.MaxAttempts; attempt++ {
		rec, err := l.records.FetchRecordDetail(ctx, id)
		if err == nil && rec != nil {
			metrics.DrilldownFetchTotal.WithLabelValues("fetched").Inc()
			l.toCache(ctx, id, rec)
			return rec, nil
		}
		if err == nil {
			err = repository.ErrNotFound
		}
		lastErr = err
		if errors.Is(err, repository.ErrNotFound) || ctx.Err() != nil || attempt == l.opts.MaxAttempts {
			break
		}

		metrics.DrilldownFetchTotal.WithLabelValues("retry").Inc()
		log.Debugf("🔁 観測詳細を再取得 (id=%s, %d回目, 待機 %v): %v", id, attempt+1, backoff, err)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
	}
	return nil, fmt.Errorf("観測詳細の取得失敗 (id=%s): %w", id, lastErr)
}

func (l *DrilldownLoader) fromCache(ctx context.Context, id string) (*model.ObservationRecord, bool) {
	if l.cache == nil {
		return nil, false
	}
	data, err := l.cache.Get(ctx, RecordCacheKey(id))
	if err != nil {
		if !errors.Is(err, repository.ErrCacheMiss) {
			log.Warnf("⚠️ キャッシュ読み込み失敗 (id=%s): %v", id, err)
		}
		return nil, false
	}
	var rec model.ObservationRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warnf("⚠️ キャッシュのデコード失敗 (id=%s): %v", id, err)
		return nil, false
	}
	return &rec, true
}

func (l *DrilldownLoader) toCache(ctx context.Context, id string, rec *model.ObservationRecord) {
	if l.cache == nil {
		return
	}
	data, err := json.Marshal(rec)
	if err != nil {
		log.Warnf("⚠️ キャッシュのエンコード失敗 (id=%s): %v", id, err)
		return
	}
	if err := l.cache.Set(ctx, RecordCacheKey(id), data, l.opts.CacheTTL); err != nil {
		log.Warnf("⚠️ キャッシュ書き込み失敗 (id=%s): %v", id, err)
	}
}
