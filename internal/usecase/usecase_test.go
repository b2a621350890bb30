package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/service"
	repoImpl "FOBI-Map/internal/repository"
)

type countingMarkers struct {
	mu     sync.Mutex
	points []model.Point
	err    error
	calls  int
}

func (m *countingMarkers) FetchMarkers(ctx context.Context, criteria model.MarkerCriteria) ([]model.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.points, m.err
}

func (m *countingMarkers) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type okRecords struct{}

func (okRecords) FetchRecordDetail(ctx context.Context, id string) (*model.ObservationRecord, error) {
	return &model.ObservationRecord{ID: id}, nil
}

var sampleViewport = model.Viewport{South: -6.5, North: -6, West: 106.5, East: 107, Zoom: 6}

func samplePoints() []model.Point {
	return []model.Point{
		{ID: "1", Latitude: -6.25, Longitude: 106.85, Source: model.SourceFobi},
		{ID: "2", Latitude: -6.21, Longitude: 106.81, Source: model.SourceBurungnesia},
		{ID: "3", Latitude: 3.59, Longitude: 98.67, Source: model.SourceKupunesia},
		{ID: "4", Latitude: 95, Longitude: 98.67, Source: model.SourceKupunesia},
	}
}

func TestGridUseCase_ComputeGrid(t *testing.T) {
	markers := &countingMarkers{points: samplePoints()}
	uc := NewGridUseCase(markers, repoImpl.NewMemoryCacheRepository(), nil)
	ctx := context.Background()

	result, stats, err := uc.ComputeGrid(ctx, sampleViewport, model.FilterState{})
	require.NoError(t, err)
	assert.Equal(t, model.GridTypeLarge, result.GridType)
	require.Len(t, result.Cells, 1)
	assert.Equal(t, "-6.4_106.8", result.Cells[0].Key.String())
	assert.Equal(t, 3, stats.TotalObservations, "統計は表示範囲に関係なく絞り込み後の全件")

	_, _, err = uc.ComputeGrid(ctx, sampleViewport, model.FilterState{})
	require.NoError(t, err)
	assert.Equal(t, 1, markers.callCount(), "2回目はキャッシュ")

	_, _, err = uc.ComputeGrid(ctx, sampleViewport, model.FilterState{Search: "x"})
	require.NoError(t, err)
	assert.Equal(t, 2, markers.callCount(), "条件が変われば取り直す")
}

func TestGridUseCase_ComputeGrid_不正な表示範囲(t *testing.T) {
	uc := NewGridUseCase(&countingMarkers{}, nil, nil)
	_, _, err := uc.ComputeGrid(context.Background(), model.Viewport{South: 1, North: -1, West: 0, East: 1, Zoom: 6}, model.FilterState{})
	assert.ErrorIs(t, err, ErrInvalidViewport)
}

func TestGridUseCase_取得失敗(t *testing.T) {
	uc := NewGridUseCase(&countingMarkers{err: errors.New("upstream down")}, nil, nil)
	_, err := uc.ComputeStats(context.Background(), model.FilterState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}

func newTestSessionUseCase(markers *countingMarkers) *sessionUseCaseImpl {
	grid := NewGridUseCase(markers, nil, nil)
	return NewSessionUseCase(grid, okRecords{}, nil, nil, SessionOptions{
		TTL:       time.Minute,
		Throttle:  5 * time.Millisecond,
		Drilldown: service.DrilldownOptions{BatchSize: 10, MaxAttempts: 1},
	}).(*sessionUseCaseImpl)
}

func TestSessionUseCase_集計とフィルタ変更(t *testing.T) {
	uc := newTestSessionUseCase(&countingMarkers{points: samplePoints()})
	ctx := context.Background()
	defer uc.closeAll()

	vp := sampleViewport
	sess, err := uc.CreateSession(ctx, model.FilterState{}, &vp)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.PointCount)

	require.Eventually(t, func() bool {
		r, err := uc.LatestGrid(ctx, sess.SessionID)
		return err == nil && r.TotalCount() == 2
	}, time.Second, 5*time.Millisecond)

	page, err := uc.LoadCellRecords(ctx, sess.SessionID, "-6.4_106.8")
	require.NoError(t, err)
	assert.Len(t, page.Records, 2)
	assert.False(t, page.HasMore)

	updated, err := uc.UpdateFilter(ctx, sess.SessionID, model.FilterState{DataSources: []model.Source{model.SourceFobi}})
	require.NoError(t, err)
	assert.Equal(t, 1, updated.PointCount)
	require.Eventually(t, func() bool {
		r, err := uc.LatestGrid(ctx, sess.SessionID)
		return err == nil && r.TotalCount() == 1
	}, time.Second, 5*time.Millisecond)

	_, err = uc.LoadCellRecords(ctx, sess.SessionID, "0_0")
	assert.ErrorIs(t, err, ErrCellNotFound)
}

func TestSessionUseCase_ズーム帯が変わると同じキーのセルも読み直す(t *testing.T) {
	// 0.2度では A と B が -6.4_106.8 に入り、0.1度では A だけが同じキーのセルに残る
	markers := &countingMarkers{points: []model.Point{
		{ID: "A", Latitude: -6.35, Longitude: 106.85, Source: model.SourceFobi},
		{ID: "B", Latitude: -6.25, Longitude: 106.95, Source: model.SourceBurungnesia},
	}}
	grid := NewGridUseCase(markers, nil, nil)
	uc := NewSessionUseCase(grid, okRecords{}, nil, nil, SessionOptions{
		TTL:       time.Minute,
		Throttle:  5 * time.Millisecond,
		Drilldown: service.DrilldownOptions{PageSize: 1, BatchSize: 1, MaxAttempts: 1},
	}).(*sessionUseCaseImpl)
	ctx := context.Background()
	defer uc.closeAll()

	vp := sampleViewport
	sess, err := uc.CreateSession(ctx, model.FilterState{}, &vp)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		r, err := uc.LatestGrid(ctx, sess.SessionID)
		return err == nil && r.GridType == model.GridTypeLarge
	}, time.Second, 5*time.Millisecond)

	page, err := uc.LoadCellRecords(ctx, sess.SessionID, "-6.4_106.8")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, 2, page.Total)
	assert.True(t, page.HasMore)

	zoomed := sampleViewport
	zoomed.Zoom = 8
	require.NoError(t, uc.HandleViewportEvent(ctx, sess.SessionID, model.ViewportEvent{Event: "zoomend", Viewport: zoomed}))
	require.Eventually(t, func() bool {
		r, err := uc.LatestGrid(ctx, sess.SessionID)
		return err == nil && r.GridType == model.GridTypeMedium
	}, time.Second, 5*time.Millisecond)

	page, err = uc.LoadCellRecords(ctx, sess.SessionID, "-6.4_106.8")
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.Equal(t, "A", page.Records[0].ID)
	assert.Equal(t, 1, page.Total)
	assert.False(t, page.HasMore)
}

func TestSessionUseCase_エラー(t *testing.T) {
	uc := newTestSessionUseCase(&countingMarkers{points: samplePoints()})
	ctx := context.Background()
	defer uc.closeAll()

	_, err := uc.LatestGrid(ctx, "nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	sess, err := uc.CreateSession(ctx, model.FilterState{}, nil)
	require.NoError(t, err)

	_, err = uc.LatestGrid(ctx, sess.SessionID)
	assert.ErrorIs(t, err, ErrGridNotReady)
	_, err = uc.LoadCellRecords(ctx, sess.SessionID, "-6.4_106.8")
	assert.ErrorIs(t, err, ErrGridNotReady)

	err = uc.HandleViewportEvent(ctx, sess.SessionID, model.ViewportEvent{Event: "click", Viewport: sampleViewport})
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.NoError(t, uc.HandleViewportEvent(ctx, sess.SessionID, model.ViewportEvent{Event: "MoveEnd", Viewport: sampleViewport}))

	require.NoError(t, uc.DeleteSession(ctx, sess.SessionID))
	assert.ErrorIs(t, uc.DeleteSession(ctx, sess.SessionID), ErrSessionNotFound)
}

func TestSessionUseCase_期限切れセッションの削除(t *testing.T) {
	uc := newTestSessionUseCase(&countingMarkers{points: samplePoints()})
	ctx := context.Background()
	defer uc.closeAll()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	uc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	advance := func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}

	stale, err := uc.CreateSession(ctx, model.FilterState{}, nil)
	require.NoError(t, err)
	fresh, err := uc.CreateSession(ctx, model.FilterState{}, nil)
	require.NoError(t, err)

	advance(45 * time.Second)
	_, err = uc.LatestGrid(ctx, fresh.SessionID) // 最終アクセスを更新
	assert.ErrorIs(t, err, ErrGridNotReady)
	advance(30 * time.Second)

	assert.Equal(t, 1, uc.evictExpired())
	_, err = uc.LatestGrid(ctx, stale.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = uc.LatestGrid(ctx, fresh.SessionID)
	assert.ErrorIs(t, err, ErrGridNotReady)
}

func TestSessionUseCase_Runは終了時に全セッションを閉じる(t *testing.T) {
	uc := newTestSessionUseCase(&countingMarkers{points: samplePoints()})
	ctx, cancel := context.WithCancel(context.Background())

	sess, err := uc.CreateSession(context.Background(), model.FilterState{}, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		uc.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run が終了しない")
	}
	_, err = uc.LatestGrid(context.Background(), sess.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
