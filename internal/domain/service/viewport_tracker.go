package service

import (
	"sync"
	"time"

	"github.com/apex/log"

	"FOBI-Map/internal/domain/model"
)

// DefaultViewportThrottle moveend/zoomend をまとめる間隔
const DefaultViewportThrottle = 100 * time.Millisecond

// TrackerState ビューポート追跡の状態
type TrackerState int

const (
	TrackerIdle TrackerState = iota
	TrackerUpdating
)

// String 状態名
func (s TrackerState) String() string {
	switch s {
	case TrackerUpdating:
		return "updating"
	default:
		return "idle"
	}
}

// RecomputeTrigger 表示範囲が確定したときに呼ばれる再計算の入口
type RecomputeTrigger func(vp model.Viewport, gridType model.GridType)

// ViewportTracker 地図の移動・ズームイベントを間引き、確定した表示範囲で再計算を起動する
type ViewportTracker struct {
	throttle time.Duration
	trigger  RecomputeTrigger

	mu         sync.Mutex
	state      TrackerState
	current    model.Viewport
	hasCurrent bool
	pending    *model.Viewport
	timer      *time.Timer
	stopped    bool

	// flushMu 再計算の呼び出しを直列化する
	flushMu sync.Mutex
}

// NewViewportTracker 新しいトラッカーを作成。throttle が0以下なら既定値
func NewViewportTracker(throttle time.Duration, trigger RecomputeTrigger) *ViewportTracker {
	if throttle <= 0 {
		throttle = DefaultViewportThrottle
	}
	return &ViewportTracker{
		throttle: throttle,
		trigger:  trigger,
		state:    TrackerIdle,
	}
}

// HandleMoveEnd 地図の移動終了イベント
func (t *ViewportTracker) HandleMoveEnd(vp model.Viewport) {
	t.record(vp, "moveend")
}

// HandleZoomEnd 地図のズーム終了イベント
func (t *ViewportTracker) HandleZoomEnd(vp model.Viewport) {
	t.record(vp, "zoomend")
}

// State 現在の状態
func (t *ViewportTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Current 最後に確定した表示範囲
func (t *ViewportTracker) Current() (model.Viewport, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.hasCurrent
}

// Stop 以降のイベントを無視し、待機中の再計算を取り消す
func (t *ViewportTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopped = true
	t.pending = nil
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *ViewportTracker) record(vp model.Viewport, event string) {
	vp.Zoom = ClampZoom(vp.Zoom)
	if !vp.IsValid() {
		log.Warnf("⚠️ 不正な表示範囲を無視: %s %+v", event, vp)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.pending = &vp
	if t.timer == nil {
		t.timer = time.AfterFunc(t.throttle, t.flush)
	}
}

func (t *ViewportTracker) flush() {
	t.flushMu.Lock()
	defer t.flushMu.Unlock()

	t.mu.Lock()
	vp := t.pending
	t.pending = nil
	t.timer = nil
	if t.stopped || vp == nil {
		t.mu.Unlock()
		return
	}
	t.state = TrackerUpdating
	t.current = *vp
	t.hasCurrent = true
	t.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("❌ 再計算の起動でpanic発生: %v", r)
		}
		t.mu.Lock()
		t.state = TrackerIdle
		t.mu.Unlock()
	}()

	gridType := GridTypeForZoom(vp.Zoom)
	log.Debugf("🗺️ 表示範囲確定: %s zoom=%.1f (%s)", vp.BBoxString(), vp.Zoom, gridType)
	if t.trigger != nil {
		t.trigger(*vp, gridType)
	}
}
