package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"mogura/server/application"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize game endpoint")
)

const (
	idleTimeout       = 30 * time.Second
	heartbeatInterval = 10 * time.Second
)

type gameCommandKind uint8

const (
	cmdStart gameCommandKind = iota + 1
	cmdReset
)

type gameCommand struct {
	kind  gameCommandKind
	start *StartPayload
}

// GameEndpoint は1接続に1つのゲームセッションを紐付けるエンドポイントです。
// ゲームは単一の論理タイムラインで動くため、readLoop は入力を直接ゲームに
// 適用せず hitCh / cmdCh に積み、tickLoop が毎tickの先頭でまとめて適用します。
// これによりヒット解決とスケジューリングが同じタイムライン上で直列化されます。
type GameEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    *Session
	connection *Connection
	settings   application.Settings

	game  *application.Game
	board *ScoreBoard

	hitCh   chan HitPayload
	cmdCh   chan gameCommand
	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewGameEndpoint(session *Session, connection *Connection, settings application.Settings) (*GameEndpoint, error) {
	if session == nil {
		return nil, ErrInitializationFailed
	}
	if connection == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(context.Background())
	ge := &GameEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		session:    session,
		connection: connection,
		settings:   settings,
		board:      &ScoreBoard{},
		hitCh:      make(chan HitPayload, 64),
		cmdCh:      make(chan gameCommand, 16),
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan []byte, 1024),
	}
	ge.game = application.NewGame(settings, ge.callbacks(), nil)
	return ge, nil
}

// callbacks はコアからの通知をスコア集計とワイヤ送信に接続します。
// フィードバック系は fire-and-forget で、送信に失敗してもゲームは進行します。
func (ge *GameEndpoint) callbacks() application.Callbacks {
	return application.Callbacks{
		OnResolved: func(outcome application.Outcome, payload application.Payload) {
			ge.board.Apply(outcome)
		},
		OnSessionEnd: func(spawnsIssued int) {
			ge.sendNonBlocking(EncodeResultMessage(ge.session.ID(), ge.board.Result(spawnsIssued)))
		},
		OnRise: func(entityID int) {
			ge.sendNonBlocking(EncodeEventMessage(ge.session.ID(), EventSubTypeRise, uint8(entityID)))
		},
		OnCorrectHit: func(entityID int) {
			ge.sendNonBlocking(EncodeEventMessage(ge.session.ID(), EventSubTypeCorrectHit, uint8(entityID)))
		},
		OnIncorrectHit: func(entityID int) {
			ge.sendNonBlocking(EncodeEventMessage(ge.session.ID(), EventSubTypeIncorrectHit, uint8(entityID)))
		},
	}
}

func (ge *GameEndpoint) Run() error {
	eg, ctx := errgroup.WithContext(ge.ctx)
	eg.Go(func() error {
		ge.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ge.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ge.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		ge.tickLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		hb := NewHeartbeatService(heartbeatInterval, ge.session, ge.writeCh)
		hb.Run(ctx)
		return nil
	})

	// セッションID通知を送信
	if err := ge.Send(EncodeAssignMessage(ge.session.ID())); err != nil {
		return err
	}

	if err := eg.Wait(); err != nil {
		return err
	}
	return nil
}

func (ge *GameEndpoint) Send(data []byte) error {
	select {
	case ge.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (ge *GameEndpoint) sendNonBlocking(data []byte) {
	if err := ge.Send(data); err != nil {
		slog.Warn("endpoint: writeCh full, message dropped", "sessionID", ge.session.ID())
	}
}

func (ge *GameEndpoint) Close(ctx context.Context) {
	ge.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: nil})
}

func (ge *GameEndpoint) ForceClose() {
	ge.close()
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (ge *GameEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-ge.ctrlCh:
			ge.handleControlEvent(ctx, ev)
		case <-ticker.C:
			ok, reason := ge.session.IsIdle(idleTimeout)
			if ok {
				ge.handleControlEvent(ctx, endpointEvent{
					kind: evClose,
					err:  errors.New(reason.String()),
				})
			}
		}
	}
}

func (ge *GameEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evReadError, evWriteError, evClose:
		if ev.err != nil {
			slog.DebugContext(ctx, "endpoint: closing", "sessionID", ge.session.ID(), "reason", ev.err)
		}
		ge.close()
	}
}

func (ge *GameEndpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := ge.connection.Read(ctx)
			if err != nil {
				ge.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
				return
			}
			ge.session.TouchRead()
			ge.handleData(ctx, data)
		}
	}
}

func (ge *GameEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-ge.writeCh:
			err := ge.connection.Write(ctx, data)
			if err != nil {
				ge.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				return
			}
			ge.session.TouchWrite()
		}
	}
}

// tickLoop はゲームの単一タイムラインを駆動します。
// 毎tick、先に溜まったコマンドとヒットを適用してから Game.Tick を呼び、
// スナップショットを配信します。
func (ge *GameEndpoint) tickLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Second / application.TickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		CMD_LOOP:
			for {
				select {
				case cmd := <-ge.cmdCh:
					ge.handleCommand(ctx, cmd)
				default:
					break CMD_LOOP
				}
			}
		HIT_LOOP:
			for {
				select {
				case hit := <-ge.hitCh:
					result := ge.game.ResolveHit(int(hit.EntityID))
					slog.DebugContext(ctx, "endpoint: hit resolved",
						"sessionID", ge.session.ID(),
						"entityID", hit.EntityID,
						"result", result.String())
				default:
					break HIT_LOOP
				}
			}

			ge.game.Tick(ctx)

			if ge.game.Phase() != application.PhaseNotStarted {
				snap := ge.game.Snapshot()
				state := NewStatePayload(snap, ge.board.Score(), ge.board.Streak())
				ge.sendNonBlocking(EncodeStateMessage(ge.session.ID(), state))
			}
		}
	}
}

func (ge *GameEndpoint) handleCommand(ctx context.Context, cmd gameCommand) {
	switch cmd.kind {
	case cmdStart:
		if ge.game.Phase() == application.PhaseEnded {
			// 終了済みラウンドへの開始要求は再構築してから開始する
			ge.game.Reset()
			ge.board.Reset()
		}
		if cmd.start != nil {
			ge.applyStartOverrides(ctx, cmd.start)
		}
		ge.game.Start(ctx)
	case cmdReset:
		ge.game.Reset()
		ge.board.Reset()
		slog.InfoContext(ctx, "endpoint: round reset", "sessionID", ge.session.ID())
	}
}

// applyStartOverrides は開始要求に含まれるティア・時間の指定を反映します。
// 指定が不正な場合はサーバー設定値のまま開始します。
func (ge *GameEndpoint) applyStartOverrides(ctx context.Context, start *StartPayload) {
	st := ge.settings
	changed := false
	if start.Tier <= uint8(application.TierFast) {
		st.Tier = application.SpeedTier(start.Tier)
		changed = true
	}
	if start.DurationSeconds > 0 {
		st.DurationSeconds = int(start.DurationSeconds)
		changed = true
	}
	if changed && ge.game.Phase() == application.PhaseNotStarted {
		ge.game = application.NewGame(st, ge.callbacks(), nil)
	}
}

func (ge *GameEndpoint) close() {
	if !ge.closed.CompareAndSwap(false, true) {
		return
	}
	ge.cancel()
	ge.session.Close()
	ge.connection.Close()
}

func (ge *GameEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case ge.ctrlCh <- ev:
	case <-ctx.Done():
	}
}

func (ge *GameEndpoint) handleData(ctx context.Context, data []byte) {
	header, err := ParseHeader(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to parse header", "err", err)
		return
	}
	expectedBytes := ge.session.ID().Bytes()
	if header.SessionID != expectedBytes {
		slog.WarnContext(ctx, "session ID mismatch",
			"expected", ge.session.ID(), "got", SessionIDFromBytes(header.SessionID))
		return
	}
	payloadHeader, err := ParsePayloadHeader(data[HeaderSize:])
	if err != nil {
		slog.WarnContext(ctx, "failed to parse payload header", "err", err)
		return
	}
	payload := data[HeaderSize+PayloadHeaderSize:]

	switch payloadHeader.DataType {
	case DataTypeHit:
		hit, err := ParseHitPayload(payload)
		if err != nil {
			slog.WarnContext(ctx, "failed to parse hit payload", "err", err)
			return
		}
		select {
		case ge.hitCh <- *hit:
		default:
			slog.WarnContext(ctx, "endpoint: hitCh full, hit dropped", "sessionID", ge.session.ID())
		}
	case DataTypeControl:
		ge.handleControlMessage(ctx, ControlSubType(payloadHeader.SubType), payload)
	default:
		slog.WarnContext(ctx, "unknown data type", "dataType", payloadHeader.DataType)
	}
}

func (ge *GameEndpoint) handleControlMessage(ctx context.Context, subType ControlSubType, payload []byte) {
	switch subType {
	case ControlSubTypeStart:
		start, err := ParseStartPayload(payload)
		if err != nil {
			// ペイロードなしの開始要求はサーバー設定で開始する
			start = nil
		}
		select {
		case ge.cmdCh <- gameCommand{kind: cmdStart, start: start}:
		default:
			slog.WarnContext(ctx, "endpoint: cmdCh full, start dropped", "sessionID", ge.session.ID())
		}
	case ControlSubTypeReset:
		select {
		case ge.cmdCh <- gameCommand{kind: cmdReset}:
		default:
			slog.WarnContext(ctx, "endpoint: cmdCh full, reset dropped", "sessionID", ge.session.ID())
		}
	case ControlSubTypePong:
		ge.session.TouchPong()
	case ControlSubTypePing:
		// クライアント起点のpingにはpongで応える
		ge.sendNonBlocking(encodeMessage(ge.session.ID(), DataTypeControl, uint8(ControlSubTypePong), nil))
	default:
		slog.WarnContext(ctx, "unknown control subtype", "subType", subType)
	}
}
