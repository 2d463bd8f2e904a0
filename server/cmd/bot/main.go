package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"mogura/server/application"
	"mogura/server/domain"
	"mogura/utils"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount := utils.GetEnvIntDefault("BOT_COUNT", 1)

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := range botCount {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

// botPersona はボットごとの個性パラメータです。
type botPersona struct {
	whackChance   float64 // Up のエンティティを1フレームあたり叩きに行く確率（反応速度の代わり）
	mistakeChance float64 // 不正解側エンティティもつい叩いてしまう確率
}

func newBotPersona() botPersona {
	return botPersona{
		whackChance:   0.04 + rand.Float64()*0.08, // 反応の速いボットと遅いボット
		mistakeChance: 0.05 + rand.Float64()*0.20,
	}
}

func botSession(ctx context.Context, serverURL string, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	var sessionID domain.SessionID
	var seq uint16
	persona := newBotPersona()
	whacked := make(map[uint8]bool) // このUpサイクルで叩き済みのエンティティ

	send := func(dataType domain.DataType, subType uint8, payload []byte) error {
		seq++
		header := domain.Header{
			Version:   1,
			SessionID: sessionID.Bytes(),
			Seq:       seq,
			Length:    uint16(domain.PayloadHeaderSize + len(payload)),
			Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
		}
		payloadHeader := domain.PayloadHeader{DataType: dataType, SubType: subType}
		data := append(header.Encode(), payloadHeader.Encode()...)
		data = append(data, payload...)
		return conn.Write(ctx, websocket.MessageBinary, data)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		if len(data) < domain.HeaderSize+domain.PayloadHeaderSize {
			continue
		}
		payloadHeader, err := domain.ParsePayloadHeader(data[domain.HeaderSize:])
		if err != nil {
			continue
		}
		payload := data[domain.HeaderSize+domain.PayloadHeaderSize:]

		switch payloadHeader.DataType {
		case domain.DataTypeControl:
			switch domain.ControlSubType(payloadHeader.SubType) {
			case domain.ControlSubTypeAssign:
				header, err := domain.ParseHeader(data)
				if err != nil {
					continue
				}
				sessionID = domain.SessionIDFromBytes(header.SessionID)
				logger.Info("assigned", "sessionID", sessionID)
				// ラウンド開始を要求（ティア・時間はサーバー設定のまま）
				if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypeStart), nil); err != nil {
					return err
				}
			case domain.ControlSubTypePing:
				if err := send(domain.DataTypeControl, uint8(domain.ControlSubTypePong), nil); err != nil {
					return err
				}
			case domain.ControlSubTypeResult:
				result, err := domain.ParseResultPayload(payload)
				if err != nil {
					continue
				}
				logger.Info("round finished",
					"spawns", result.SpawnsIssued,
					"correct", result.Correct,
					"incorrect", result.Incorrect,
					"timeouts", result.Timeouts,
					"score", result.Score,
					"bestStreak", result.BestStreak)
				return nil
			}
		case domain.DataTypeState:
			state, err := domain.ParseStatePayload(payload)
			if err != nil {
				continue
			}
			for i, e := range state.Entities {
				id := uint8(i)
				if application.EntityState(e.State) != application.StateUp {
					delete(whacked, id)
					continue
				}
				if whacked[id] {
					continue
				}
				if rand.Float64() >= persona.whackChance {
					continue
				}
				if e.Flags&domain.EntityFlagRewarded == 0 && rand.Float64() >= persona.mistakeChance {
					continue
				}
				whacked[id] = true
				hit := domain.HitPayload{
					EntityID:  id,
					Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
				}
				if err := send(domain.DataTypeHit, 0, hit.Encode()); err != nil {
					return err
				}
			}
		}
	}
}
