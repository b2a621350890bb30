package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/metrics"
)

// AggregationRequest ワーカーに渡す集計依頼
type AggregationRequest struct {
	Points   []model.Point
	Viewport model.Viewport
}

// aggregationJob 採番済みの集計ジョブ
type aggregationJob struct {
	id        string
	seq       uint64
	signature string
	points    []model.Point
	viewport  model.Viewport
	gridType  model.GridType
	cellSize  float64
}

// AggregationWorker 集計を専用のgoroutineで実行する
// 同じ条件の依頼は捨て、未処理の依頼は最新の1件にまとめ、古い結果は適用しない
type AggregationWorker struct {
	aggregate AggregateFunc

	mu            sync.Mutex
	seq           uint64
	lastSignature string
	pending       *aggregationJob
	latest        *model.GridResult
	started       bool

	wake    chan struct{}
	results chan *model.GridResult
	done    chan struct{}
}

// NewAggregationWorker 新しい集計ワーカーを作成。aggregate が nil なら Aggregate を使う
func NewAggregationWorker(aggregate AggregateFunc) *AggregationWorker {
	if aggregate == nil {
		aggregate = Aggregate
	}
	return &AggregationWorker{
		aggregate: aggregate,
		wake:      make(chan struct{}, 1),
		results:   make(chan *model.GridResult, 1),
		done:      make(chan struct{}),
	}
}

// Signature 重複判定用のシグネチャ（グリッド種別・表示範囲・点数）
func Signature(gridType model.GridType, vp model.Viewport, pointCount int) string {
	return fmt.Sprintf("%s|%s|%d", gridType, vp.BBoxString(), pointCount)
}

// Start ワーカーのgoroutineを起動する。ctx がキャンセルされると停止する
func (w *AggregationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run(ctx)
}

// Done ワーカー停止後に閉じられるチャネル
func (w *AggregationWorker) Done() <-chan struct{} {
	return w.done
}

// Submit 集計を依頼する。前回と同じシグネチャなら何もせず false を返す
func (w *AggregationWorker) Submit(req AggregationRequest) bool {
	gridType := GridTypeForZoom(req.Viewport.Zoom)
	signature := Signature(gridType, req.Viewport, len(req.Points))

	w.mu.Lock()
	if signature == w.lastSignature {
		w.mu.Unlock()
		metrics.AggregationsSkippedTotal.Inc()
		log.Debugf("⏭️ 集計スキップ: 条件に変化なし (%s)", signature)
		return false
	}
	w.seq++
	points := make([]model.Point, len(req.Points))
	copy(points, req.Points)
	if w.pending != nil {
		log.Debugf("🔁 未処理の集計依頼を置き換え: seq=%d -> %d", w.pending.seq, w.seq)
	}
	w.pending = &aggregationJob{
		id:        uuid.New().String(),
		seq:       w.seq,
		signature: signature,
		points:    points,
		viewport:  req.Viewport,
		gridType:  gridType,
		cellSize:  CellSizeForGridType(gridType),
	}
	w.lastSignature = signature
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
	return true
}

// Invalidate 次の依頼をシグネチャが同じでも計算させる（フィルタ変更時など）
func (w *AggregationWorker) Invalidate() {
	w.mu.Lock()
	w.lastSignature = ""
	w.mu.Unlock()
}

// Latest 最後に適用された集計結果（未計算なら nil）
func (w *AggregationWorker) Latest() *model.GridResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.latest
}

// Results 適用された結果を受け取るチャネル。読まれない古い結果は最新で上書きされる
func (w *AggregationWorker) Results() <-chan *model.GridResult {
	return w.results
}

func (w *AggregationWorker) run(ctx context.Context) {
	defer close(w.done)
	log.Infof("🚀 集計ワーカー起動")
	for {
		select {
		case <-ctx.Done():
			log.Infof("🛑 集計ワーカー停止")
			return
		case <-w.wake:
		}

		w.mu.Lock()
		job := w.pending
		w.pending = nil
		w.mu.Unlock()
		if job == nil {
			continue
		}

		result, err := w.compute(job)

		w.mu.Lock()
		if job.seq != w.seq {
			w.mu.Unlock()
			metrics.AggregationsStaleTotal.Inc()
			log.Debugf("🗑️ 古い集計結果を破棄: seq=%d (最新 seq=%d)", job.seq, w.seq)
			continue
		}
		if err != nil {
			// 同じ条件で再依頼できるよう、適用済みの結果のシグネチャに戻す
			if w.latest != nil {
				w.lastSignature = w.latest.Signature
			} else {
				w.lastSignature = ""
			}
			w.mu.Unlock()
			metrics.AggregationFailuresTotal.Inc()
			log.Errorf("❌ 集計失敗、前回の結果を維持します: %v", err)
			continue
		}
		w.latest = result
		w.mu.Unlock()

		w.publish(result)
	}
}

func (w *AggregationWorker) compute(job *aggregationJob) (result *model.GridResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("集計処理でpanic発生 (request=%s): %v", job.id, r)
		}
	}()

	start := time.Now()
	cells := w.aggregate(job.points, job.cellSize)
	elapsed := time.Since(start)

	metrics.AggregationsTotal.Inc()
	metrics.AggregationDurationMs.Observe(float64(elapsed.Microseconds()) / 1000)
	metrics.GridCellsEmitted.Observe(float64(len(cells)))
	log.Infof("✅ 集計完了: %d点 -> %dセル (%s, %v)", len(job.points), len(cells), job.gridType, elapsed)

	return &model.GridResult{
		RequestID: job.id,
		Sequence:  job.seq,
		Viewport:  job.viewport,
		GridType:  job.gridType,
		CellSize:  job.cellSize,
		Cells:     cells,
		Signature: job.signature,
		CreatedAt: time.Now(),
	}, nil
}

// publish 読み手が遅れていれば古い結果を捨てて最新を入れる
func (w *AggregationWorker) publish(result *model.GridResult) {
	select {
	case w.results <- result:
		return
	default:
	}
	select {
	case <-w.results:
	default:
	}
	select {
	case w.results <- result:
	default:
	}
}
