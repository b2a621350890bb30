package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"FOBI-Map/internal/domain/model"
	"FOBI-Map/internal/domain/repository"
	"FOBI-Map/internal/domain/service"
	"FOBI-Map/internal/metrics"
)

var (
	// ErrSessionNotFound セッションが存在しないか期限切れ
	ErrSessionNotFound = errors.New("セッションが見つかりません")
	// ErrGridNotReady まだ集計結果がない
	ErrGridNotReady = errors.New("集計結果がまだありません")
	// ErrCellNotFound 最新の集計結果に該当セルがない
	ErrCellNotFound = errors.New("セルが見つかりません")
	// ErrUnknownEvent moveend / zoomend 以外のイベント
	ErrUnknownEvent = errors.New("未対応のイベントです")
)

// SessionOptions セッションの調整値
type SessionOptions struct {
	TTL       time.Duration
	Throttle  time.Duration
	Drilldown service.DrilldownOptions
}

// mapSession 1枚の地図に対応する状態（トラッカー・集計ワーカー・サイドバー）
type mapSession struct {
	id      string
	tracker *service.ViewportTracker
	worker  *service.AggregationWorker
	cancel  context.CancelFunc

	mu        sync.Mutex
	filter    model.FilterState
	points    []model.Point
	loader    *service.DrilldownLoader
	loaderKey string
	lastSeen  time.Time
}

func (s *mapSession) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *mapSession) currentPoints() []model.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points
}

// recompute 表示範囲内の点を集計ワーカーに渡す
func (s *mapSession) recompute(vp model.Viewport, gridType model.GridType) {
	visible := service.PointsInViewport(s.currentPoints(), vp)
	if s.worker.Submit(service.AggregationRequest{Points: visible, Viewport: vp}) {
		log.Debugf("🧮 集計依頼 (session=%s, %s, %d件)", s.id, gridType, len(visible))
	}
}

type SessionUseCase interface {
	CreateSession(ctx context.Context, filter model.FilterState, initial *model.Viewport) (*model.SessionResponse, error)
	HandleViewportEvent(ctx context.Context, sessionID string, event model.ViewportEvent) error
	UpdateFilter(ctx context.Context, sessionID string, filter model.FilterState) (*model.SessionResponse, error)
	LatestGrid(ctx context.Context, sessionID string) (*model.GridResult, error)
	LoadCellRecords(ctx context.Context, sessionID, cellKey string) (*model.RecordsPageResponse, error)
	DeleteSession(ctx context.Context, sessionID string) error
	// Run 期限切れセッションを定期的に掃除する。ctx が終わるまで戻らない
	Run(ctx context.Context)
}

type sessionUseCaseImpl struct {
	gridUseCase  GridUseCase
	recordsRepo  repository.RecordsRepository
	cache        repository.CacheRepository
	locationName *service.LocationNameService
	opts         SessionOptions
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*mapSession
}

// NewSessionUseCase 新しいSessionUseCaseを作成
func NewSessionUseCase(
	gridUseCase GridUseCase,
	recordsRepo repository.RecordsRepository,
	cache repository.CacheRepository,
	locationName *service.LocationNameService,
	opts SessionOptions,
) SessionUseCase {
	if opts.TTL <= 0 {
		opts.TTL = 30 * time.Minute
	}
	return &sessionUseCaseImpl{
		gridUseCase:  gridUseCase,
		recordsRepo:  recordsRepo,
		cache:        cache,
		locationName: locationName,
		opts:         opts,
		now:          time.Now,
		sessions:     make(map[string]*mapSession),
	}
}

func (u *sessionUseCaseImpl) CreateSession(ctx context.Context, filter model.FilterState, initial *model.Viewport) (*model.SessionResponse, error) {
	points, err := u.gridUseCase.LoadFilteredPoints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("セッション用の観測データ取得に失敗: %w", err)
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	s := &mapSession{
		id:       uuid.New().String(),
		worker:   service.NewAggregationWorker(nil),
		cancel:   cancel,
		filter:   filter,
		points:   points,
		lastSeen: u.now(),
	}
	s.tracker = service.NewViewportTracker(u.opts.Throttle, s.recompute)
	s.worker.Start(workerCtx)

	u.mu.Lock()
	u.sessions[s.id] = s
	count := len(u.sessions)
	u.mu.Unlock()
	metrics.ActiveSessions.Set(float64(count))

	log.Infof("🆕 セッション作成: %s (%d件)", s.id, len(points))
	if initial != nil {
		s.tracker.HandleMoveEnd(*initial)
	}
	return u.sessionResponse(s), nil
}

func (u *sessionUseCaseImpl) HandleViewportEvent(ctx context.Context, sessionID string, event model.ViewportEvent) error {
	s, err := u.get(sessionID)
	if err != nil {
		return err
	}
	switch strings.ToLower(event.Event) {
	case "moveend":
		s.tracker.HandleMoveEnd(event.Viewport)
	case "zoomend":
		s.tracker.HandleZoomEnd(event.Viewport)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEvent, event.Event)
	}
	return nil
}

func (u *sessionUseCaseImpl) UpdateFilter(ctx context.Context, sessionID string, filter model.FilterState) (*model.SessionResponse, error) {
	s, err := u.get(sessionID)
	if err != nil {
		return nil, err
	}
	points, err := u.gridUseCase.LoadFilteredPoints(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("フィルタ更新時の観測データ取得に失敗: %w", err)
	}

	s.mu.Lock()
	s.filter = filter
	s.points = points
	s.loader = nil
	s.loaderKey = ""
	s.mu.Unlock()

	// 件数が同じでも中身は変わり得るので、重複判定を解除して再計算する
	s.worker.Invalidate()
	if vp, ok := s.tracker.Current(); ok {
		s.tracker.HandleMoveEnd(vp)
	}
	log.Infof("🔄 フィルタ更新: %s (%d件)", s.id, len(points))
	return u.sessionResponse(s), nil
}

func (u *sessionUseCaseImpl) LatestGrid(ctx context.Context, sessionID string) (*model.GridResult, error) {
	s, err := u.get(sessionID)
	if err != nil {
		return nil, err
	}
	latest := s.worker.Latest()
	if latest == nil {
		return nil, ErrGridNotReady
	}
	return latest, nil
}

func (u *sessionUseCaseImpl) LoadCellRecords(ctx context.Context, sessionID, cellKey string) (*model.RecordsPageResponse, error) {
	s, err := u.get(sessionID)
	if err != nil {
		return nil, err
	}
	latest := s.worker.Latest()
	if latest == nil {
		return nil, ErrGridNotReady
	}
	cell, ok := latest.FindCell(cellKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCellNotFound, cellKey)
	}

	// 別のセルが選ばれたか集計結果が差し替わったらサイドバーを最初から読み直す
	// 同じキー文字列でもズーム帯が違えば別のセルになる
	loaderKey := latest.RequestID + "|" + cellKey
	s.mu.Lock()
	if s.loader == nil || s.loaderKey != loaderKey {
		s.loader = service.NewDrilldownLoader(cell.PointIDs(), u.recordsRepo, u.cache, u.opts.Drilldown)
		s.loaderKey = loaderKey
	}
	loader := s.loader
	s.mu.Unlock()

	records, err := loader.LoadMore(ctx)
	if err != nil {
		return nil, err
	}

	page := &model.RecordsPageResponse{
		CellKey: cellKey,
		Records: records,
		Loaded:  len(loader.Records()),
		Total:   loader.Total(),
		Failed:  loader.Failed(),
		HasMore: loader.HasMore(),
	}
	if u.locationName != nil {
		if name, err := u.locationName.Resolve(ctx, cell.Center.Lat, cell.Center.Lng); err == nil {
			page.LocationName = name
		}
	}
	return page, nil
}

func (u *sessionUseCaseImpl) DeleteSession(ctx context.Context, sessionID string) error {
	u.mu.Lock()
	s, ok := u.sessions[sessionID]
	if ok {
		delete(u.sessions, sessionID)
	}
	count := len(u.sessions)
	u.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	metrics.ActiveSessions.Set(float64(count))
	u.close(s)
	log.Infof("🗑️ セッション削除: %s", sessionID)
	return nil
}

func (u *sessionUseCaseImpl) Run(ctx context.Context) {
	interval := u.opts.TTL / 2
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Millisecond {
		interval = time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			u.closeAll()
			return
		case <-ticker.C:
			u.evictExpired()
		}
	}
}

func (u *sessionUseCaseImpl) evictExpired() int {
	now := u.now()
	var expired []*mapSession

	u.mu.Lock()
	for id, s := range u.sessions {
		s.mu.Lock()
		stale := now.Sub(s.lastSeen) > u.opts.TTL
		s.mu.Unlock()
		if stale {
			expired = append(expired, s)
			delete(u.sessions, id)
		}
	}
	count := len(u.sessions)
	u.mu.Unlock()

	for _, s := range expired {
		u.close(s)
	}
	if len(expired) > 0 {
		metrics.ActiveSessions.Set(float64(count))
		log.Infof("🧹 期限切れセッションを削除: %d件", len(expired))
	}
	return len(expired)
}

func (u *sessionUseCaseImpl) closeAll() {
	u.mu.Lock()
	sessions := u.sessions
	u.sessions = make(map[string]*mapSession)
	u.mu.Unlock()
	for _, s := range sessions {
		u.close(s)
	}
	metrics.ActiveSessions.Set(0)
}

func (u *sessionUseCaseImpl) close(s *mapSession) {
	s.tracker.Stop()
	s.cancel()
}

func (u *sessionUseCaseImpl) get(sessionID string) (*mapSession, error) {
	u.mu.Lock()
	s, ok := u.sessions[sessionID]
	u.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(u.now())
	return s, nil
}

func (u *sessionUseCaseImpl) sessionResponse(s *mapSession) *model.SessionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &model.SessionResponse{
		SessionID:   s.id,
		PointCount:  len(s.points),
		ExpiresAt:   s.lastSeen.Add(u.opts.TTL),
		TrackerIdle: s.tracker.State() == service.TrackerIdle,
	}
}
