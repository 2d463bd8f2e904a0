package domain

import (
	"encoding/binary"
	"errors"
	"time"

	"mogura/server/application"
)

// バイトオーダー: リトルエンディアン
var byteOrder = binary.LittleEndian

const (
	HeaderSize        = 25
	PayloadHeaderSize = 2
)

// Header はメッセージヘッダー (25バイト)
//
//	version    u8      (1)
//	sessionID  [16]byte (16)
//	seq        u16     (2)
//	length     u16     (2)  - ペイロード長
//	timestamp  u32     (4)
type Header struct {
	Version   uint8
	SessionID [16]byte
	Seq       uint16
	Length    uint16
	Timestamp uint32
}

// DataType はメッセージの種別
type DataType uint8

const (
	DataTypeHit     DataType = 1 // クライアント → サーバー: ヒット入力
	DataTypeState   DataType = 2 // サーバー → クライアント: 状態スナップショット
	DataTypeEvent   DataType = 3 // サーバー → クライアント: フィードバックイベント
	DataTypeControl DataType = 4
)

// EventSubType はfeedbackイベントのサブタイプ
// 音・振動トリガー用の fire-and-forget 通知で、ゲーム状態には影響しない
type EventSubType uint8

const (
	EventSubTypeRise         EventSubType = 1
	EventSubTypeCorrectHit   EventSubType = 2
	EventSubTypeIncorrectHit EventSubType = 3
)

// ControlSubType はcontrolメッセージのサブタイプ
type ControlSubType uint8

const (
	ControlSubTypeAssign ControlSubType = 1 // セッションID通知
	ControlSubTypeStart  ControlSubType = 2 // ラウンド開始要求
	ControlSubTypeReset  ControlSubType = 3 // ラウンド再構築要求
	ControlSubTypePing   ControlSubType = 4
	ControlSubTypePong   ControlSubType = 5
	ControlSubTypeResult ControlSubType = 6 // 最終結果通知
)

// PayloadHeader はペイロードヘッダー (2バイト)
//
//	datatype  u8 (1)
//	subtype   u8 (1)
type PayloadHeader struct {
	DataType DataType
	SubType  uint8
}

var (
	ErrInvalidHeaderSize  = errors.New("invalid header size")
	ErrInvalidPayloadSize = errors.New("invalid payload size")
)

// ParseHeader はバイト列からHeaderをパースする
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, ErrInvalidHeaderSize
	}

	var sessionID [16]byte
	copy(sessionID[:], data[1:17])

	return &Header{
		Version:   data[0],
		SessionID: sessionID,
		Seq:       byteOrder.Uint16(data[17:19]),
		Length:    byteOrder.Uint16(data[19:21]),
		Timestamp: byteOrder.Uint32(data[21:25]),
	}, nil
}

// Encode はHeaderをバイト列にエンコードする
func (h *Header) Encode() []byte {
	data := make([]byte, HeaderSize)
	data[0] = h.Version
	copy(data[1:17], h.SessionID[:])
	byteOrder.PutUint16(data[17:19], h.Seq)
	byteOrder.PutUint16(data[19:21], h.Length)
	byteOrder.PutUint32(data[21:25], h.Timestamp)
	return data
}

// ParsePayloadHeader はバイト列からPayloadHeaderをパースする
func ParsePayloadHeader(data []byte) (*PayloadHeader, error) {
	if len(data) < PayloadHeaderSize {
		return nil, ErrInvalidPayloadSize
	}

	return &PayloadHeader{
		DataType: DataType(data[0]),
		SubType:  data[1],
	}, nil
}

// Encode はPayloadHeaderをバイト列にエンコードする
func (p *PayloadHeader) Encode() []byte {
	data := make([]byte, PayloadHeaderSize)
	data[0] = byte(p.DataType)
	data[1] = byte(p.SubType)
	return data
}

// HitPayload はヒット入力 (5バイト)
// 当たり判定（どのエンティティが叩かれたか）はクライアントの描画層が解決済みで、
// サーバーにはエンティティIDだけが届く
//
//	entityID  u8  (1) - 叩かれたエンティティ
//	timestamp u32 (4) - クライアント側入力時刻 (UnixMilli下位32bit)
type HitPayload struct {
	EntityID  uint8
	Timestamp uint32
}

const HitPayloadSize = 5

var ErrInvalidHitPayloadSize = errors.New("invalid hit payload size")

// ParseHitPayload はバイト列からHitPayloadをパースする
func ParseHitPayload(data []byte) (*HitPayload, error) {
	if len(data) < HitPayloadSize {
		return nil, ErrInvalidHitPayloadSize
	}
	return &HitPayload{
		EntityID:  data[0],
		Timestamp: byteOrder.Uint32(data[1:5]),
	}, nil
}

// Encode はHitPayloadをバイト列にエンコードする
func (p *HitPayload) Encode() []byte {
	data := make([]byte, HitPayloadSize)
	data[0] = p.EntityID
	byteOrder.PutUint32(data[1:5], p.Timestamp)
	return data
}

// StartPayload はラウンド開始要求 (3バイト)
//
//	tier            u8  (1) - スピードティア
//	durationSeconds u16 (2) - セッション時間（0ならサーバー設定値）
type StartPayload struct {
	Tier            uint8
	DurationSeconds uint16
}

const StartPayloadSize = 3

var ErrInvalidStartPayloadSize = errors.New("invalid start payload size")

// ParseStartPayload はバイト列からStartPayloadをパースする
func ParseStartPayload(data []byte) (*StartPayload, error) {
	if len(data) < StartPayloadSize {
		return nil, ErrInvalidStartPayloadSize
	}
	return &StartPayload{
		Tier:            data[0],
		DurationSeconds: byteOrder.Uint16(data[1:3]),
	}, nil
}

// Encode はStartPayloadをバイト列にエンコードする
func (p *StartPayload) Encode() []byte {
	data := make([]byte, StartPayloadSize)
	data[0] = p.Tier
	byteOrder.PutUint16(data[1:3], p.DurationSeconds)
	return data
}

// EntityStateData は状態スナップショット内の1エンティティ分 (3バイト)
//
//	state    u8 (1) - EntityState
//	progress u8 (1) - アニメーション進捗を0〜255に量子化
//	flags    u8 (1) - bit0: 報酬ペイロード, bit1: ペイロードあり
type EntityStateData struct {
	State    uint8
	Progress uint8
	Flags    uint8
}

const (
	EntityStateDataSize = 3

	EntityFlagRewarded uint8 = 1 << 0
	EntityFlagActive   uint8 = 1 << 1
)

// StatePayload は状態スナップショット (可変長)
//
//	phase          u8  (1)
//	remainingTicks u32 (4)
//	spawnsIssued   u8  (1)
//	targetSpawns   u8  (1)
//	score          i32 (4)
//	streak         u16 (2)
//	entityCount    u8  (1)
//	entities       EntityStateData × entityCount
type StatePayload struct {
	Phase          uint8
	RemainingTicks uint32
	SpawnsIssued   uint8
	TargetSpawns   uint8
	Score          int32
	Streak         uint16
	Entities       []EntityStateData
}

const StatePayloadBaseSize = 14

var ErrInvalidStatePayloadSize = errors.New("invalid state payload size")

// ParseStatePayload はバイト列からStatePayloadをパースする
func ParseStatePayload(data []byte) (*StatePayload, error) {
	if len(data) < StatePayloadBaseSize {
		return nil, ErrInvalidStatePayloadSize
	}
	count := int(data[13])
	if len(data) < StatePayloadBaseSize+count*EntityStateDataSize {
		return nil, ErrInvalidStatePayloadSize
	}

	p := &StatePayload{
		Phase:          data[0],
		RemainingTicks: byteOrder.Uint32(data[1:5]),
		SpawnsIssued:   data[5],
		TargetSpawns:   data[6],
		Score:          int32(byteOrder.Uint32(data[7:11])),
		Streak:         byteOrder.Uint16(data[11:13]),
		Entities:       make([]EntityStateData, count),
	}
	for i := 0; i < count; i++ {
		off := StatePayloadBaseSize + i*EntityStateDataSize
		p.Entities[i] = EntityStateData{
			State:    data[off],
			Progress: data[off+1],
			Flags:    data[off+2],
		}
	}
	return p, nil
}

// Encode はStatePayloadをバイト列にエンコードする
func (p *StatePayload) Encode() []byte {
	data := make([]byte, StatePayloadBaseSize+len(p.Entities)*EntityStateDataSize)
	data[0] = p.Phase
	byteOrder.PutUint32(data[1:5], p.RemainingTicks)
	data[5] = p.SpawnsIssued
	data[6] = p.TargetSpawns
	byteOrder.PutUint32(data[7:11], uint32(p.Score))
	byteOrder.PutUint16(data[11:13], p.Streak)
	data[13] = uint8(len(p.Entities))
	for i, e := range p.Entities {
		off := StatePayloadBaseSize + i*EntityStateDataSize
		data[off] = e.State
		data[off+1] = e.Progress
		data[off+2] = e.Flags
	}
	return data
}

// NewStatePayload はコアのスナップショットをワイヤ表現に変換する
func NewStatePayload(snap application.Snapshot, score int32, streak uint16) *StatePayload {
	p := &StatePayload{
		Phase:          uint8(snap.Phase),
		RemainingTicks: uint32(snap.RemainingTicks),
		SpawnsIssued:   uint8(snap.SpawnsIssued),
		TargetSpawns:   uint8(snap.TargetSpawns),
		Score:          score,
		Streak:         streak,
		Entities:       make([]EntityStateData, len(snap.Entities)),
	}
	for i, e := range snap.Entities {
		d := EntityStateData{
			State:    uint8(e.State),
			Progress: uint8(e.Progress * 255),
		}
		if e.State != application.StateIdle {
			d.Flags |= EntityFlagActive
		}
		if e.Rewarded {
			d.Flags |= EntityFlagRewarded
		}
		p.Entities[i] = d
	}
	return p
}

// ResultPayload は最終結果 (13バイト)
//
//	spawnsIssued u8  (1)
//	correct      u16 (2)
//	incorrect    u16 (2)
//	timeouts     u16 (2)
//	score        i32 (4)
//	bestStreak   u16 (2)
type ResultPayload struct {
	SpawnsIssued uint8
	Correct      uint16
	Incorrect    uint16
	Timeouts     uint16
	Score        int32
	BestStreak   uint16
}

const ResultPayloadSize = 13

var ErrInvalidResultPayloadSize = errors.New("invalid result payload size")

// ParseResultPayload はバイト列からResultPayloadをパースする
func ParseResultPayload(data []byte) (*ResultPayload, error) {
	if len(data) < ResultPayloadSize {
		return nil, ErrInvalidResultPayloadSize
	}
	return &ResultPayload{
		SpawnsIssued: data[0],
		Correct:      byteOrder.Uint16(data[1:3]),
		Incorrect:    byteOrder.Uint16(data[3:5]),
		Timeouts:     byteOrder.Uint16(data[5:7]),
		Score:        int32(byteOrder.Uint32(data[7:11])),
		BestStreak:   byteOrder.Uint16(data[11:13]),
	}, nil
}

// Encode はResultPayloadをバイト列にエンコードする
func (p *ResultPayload) Encode() []byte {
	data := make([]byte, ResultPayloadSize)
	data[0] = p.SpawnsIssued
	byteOrder.PutUint16(data[1:3], p.Correct)
	byteOrder.PutUint16(data[3:5], p.Incorrect)
	byteOrder.PutUint16(data[5:7], p.Timeouts)
	byteOrder.PutUint32(data[7:11], uint32(p.Score))
	byteOrder.PutUint16(data[11:13], p.BestStreak)
	return data
}

// encodeMessage はヘッダー+ペイロードヘッダー+ペイロードを1フレームに組み立てる
func encodeMessage(sessionID SessionID, dataType DataType, subType uint8, payload []byte) []byte {
	header := Header{
		Version:   1,
		SessionID: sessionID.Bytes(),
		Seq:       0,
		Length:    uint16(PayloadHeaderSize + len(payload)),
		Timestamp: uint32(time.Now().UnixMilli() & 0xFFFFFFFF),
	}
	payloadHeader := PayloadHeader{
		DataType: dataType,
		SubType:  subType,
	}

	data := make([]byte, 0, HeaderSize+PayloadHeaderSize+len(payload))
	data = append(data, header.Encode()...)
	data = append(data, payloadHeader.Encode()...)
	data = append(data, payload...)
	return data
}

// EncodeAssignMessage はセッションID通知メッセージをエンコードする
// クライアントに自分のセッションIDを通知するために使用
func EncodeAssignMessage(sessionID SessionID) []byte {
	return encodeMessage(sessionID, DataTypeControl, uint8(ControlSubTypeAssign), nil)
}

// EncodePingMessage はPingメッセージをエンコードする
// クライアントに死活確認のpingを送信するために使用
func EncodePingMessage(sessionID SessionID) []byte {
	return encodeMessage(sessionID, DataTypeControl, uint8(ControlSubTypePing), nil)
}

// EncodeStateMessage は状態スナップショットをエンコードする
func EncodeStateMessage(sessionID SessionID, payload *StatePayload) []byte {
	return encodeMessage(sessionID, DataTypeState, 0, payload.Encode())
}

// EncodeResultMessage は最終結果をエンコードする
func EncodeResultMessage(sessionID SessionID, payload *ResultPayload) []byte {
	return encodeMessage(sessionID, DataTypeControl, uint8(ControlSubTypeResult), payload.Encode())
}

// EncodeEventMessage はフィードバックイベントをエンコードする
//
//	entityID u8 (1)
func EncodeEventMessage(sessionID SessionID, sub EventSubType, entityID uint8) []byte {
	return encodeMessage(sessionID, DataTypeEvent, uint8(sub), []byte{entityID})
}
