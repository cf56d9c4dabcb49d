// Package protocol defines the JSON wire format between clients and the
// hub: each frame is one flat JSON object whose "type" field names the
// message, read first through a small envelope and dispatched by a type
// switch, with one Type constant per message name, decoded with
// encoding/json.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/lox/holdemcore/internal/cards"
)

// Type is the envelope's `type` discriminator.
type Type string

const (
	// Client -> Server
	TypeRegister Type = "register"
	TypeLogin Type = "login"
	TypeRefreshToken Type = "refresh_token"
	TypeAuth Type = "auth"
	TypePing Type = "ping"
	TypeJoinTable Type = "join_table"
	TypeLeaveTable Type = "leave_table"
	TypeStandUp Type = "stand_up"
	TypeAction Type = "action"
	TypeChat Type = "chat"
	TypeStartGame Type = "start_game"
	TypeCreateTable Type = "create_table"
	TypeDeleteTable Type = "delete_table"
	TypeGiveChips Type = "give_chips"
	TypeTakeChips Type = "take_chips"
	TypeSetChips Type = "set_chips"
	TypeGetLedger Type = "get_ledger"
	TypeGetStandings Type = "get_standings"
	TypeEndSession Type = "end_session"

	// Server -> Client
	TypeError Type = "error"
	TypeAuthSuccess Type = "auth_success"
	TypeGameState Type = "game_state"
	TypePlayerAction Type = "player_action"
	TypeHandResult Type = "hand_result"
	TypePlayerJoined Type = "player_joined"
	TypePlayerLeft Type = "player_left"
	TypePlayerDisconnected Type = "player_disconnected"
	TypePlayerReconnected Type = "player_reconnected"
	TypeChipsUpdated Type = "chips_updated"
	TypeLedger Type = "ledger"
	TypeStandings Type = "standings"
	TypeChatBroadcast Type = "chat_broadcast"
	TypeTableCreated Type = "table_created"
	TypeTableDeleted Type = "table_deleted"
	TypeTablesList Type = "tables_list"
	TypePong Type = "pong"
)

// ErrorCode is the closed taxonomy of error codes sent in an error frame.
type ErrorCode string

const (
	CodeBadJSON ErrorCode = "BAD_JSON"
	CodeUnknownType ErrorCode = "UNKNOWN_TYPE"
	CodeAuthRequired ErrorCode = "AUTH_REQUIRED"
	CodeAuthFailed ErrorCode = "AUTH_FAILED"
	CodeRefreshFailed ErrorCode = "REFRESH_FAILED"

	CodeNotAdmin ErrorCode = "NOT_ADMIN"

	CodeTableNotFound ErrorCode = "TABLE_NOT_FOUND"
	CodeTableHasPlayers ErrorCode = "TABLE_HAS_PLAYERS"
	CodeSeatTaken ErrorCode = "SEAT_TAKEN"
	CodeInvalidSeat ErrorCode = "INVALID_SEAT"
	CodeAlreadySeated ErrorCode = "ALREADY_SEATED"
	CodeNotAtTable ErrorCode = "NOT_AT_TABLE"
	CodePlayerNotFound ErrorCode = "PLAYER_NOT_FOUND"

	CodeInvalidAction ErrorCode = "INVALID_ACTION"
	CodeCannotStart ErrorCode = "CANNOT_START"

	CodeChipError ErrorCode = "CHIP_ERROR"

	CodeServerError ErrorCode = "SERVER_ERROR"
)

// envelope is the minimal shape used to peek the discriminator before
// unmarshaling into the concrete payload type.
type envelope struct {
	Type Type `json:"type"`
}

// ErrBadJSON and ErrUnknownType are returned by Decode for the two
// protocol-level failures requires a response for.
var (
	ErrBadJSON = fmt.Errorf("protocol: %s", CodeBadJSON)
	ErrUnknownType = fmt.Errorf("protocol: %s", CodeUnknownType)
)

// ---- Client -> Server payloads ----

type RegisterMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginMsg struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshTokenMsg struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthMsg struct {
	Token string `json:"token"`
}

type PingMsg struct{}

type JoinTableMsg struct {
	TableID string `json:"table_id"`
	Seat *int `json:"seat,omitempty"`
}

type LeaveTableMsg struct{}

type StandUpMsg struct{}

type ActionMsg struct {
	Kind string `json:"kind"`
	Amount int `json:"amount"`
}

type ChatMsg struct {
	Text string `json:"text"`
}

type StartGameMsg struct{}

type CreateTableMsg struct {
	TableID string `json:"table_id"`
	SmallBlind int `json:"small_blind"`
	BigBlind int `json:"big_blind"`
	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`
	TurnSeconds int `json:"turn_seconds"`
}

type DeleteTableMsg struct {
	TableID string `json:"table_id"`
}

type GiveChipsMsg struct {
	Player string `json:"player"`
	Amount int `json:"amount"`
}

type TakeChipsMsg struct {
	Player string `json:"player"`
	Amount int `json:"amount"`
}

type SetChipsMsg struct {
	Player string `json:"player"`
	Amount int `json:"amount"`
}

type GetLedgerMsg struct{}

type GetStandingsMsg struct{}

type EndSessionMsg struct{}

// ---- Server -> Client payloads ----

type ErrorMsg struct {
	Message string `json:"message"`
	Code ErrorCode `json:"code"`
}

type AuthSuccessMsg struct {
	UserID string `json:"user_id"`
	Role string `json:"role"`
}

// PlayerView is one seat's projection inside a GameStateMsg. HoleCards is
// populated only for the viewer's own seat, or a revealed showdown hand.
type PlayerView struct {
	UserID string `json:"user_id"`
	Seat int `json:"seat"`
	Chips int `json:"chips"`
	Wager int `json:"wager"`
	Folded bool `json:"folded"`
	AllIn bool `json:"all_in"`
	SittingOut bool `json:"sitting_out"`
	Disconnected bool `json:"disconnected"`
	HasCards bool `json:"has_cards"`
	HoleCards []cards.Card `json:"hole_cards,omitempty"`
}

// GameStateMsg is the per-viewer snapshot,.
type GameStateMsg struct {
	TableID string `json:"table_id"`
	Stage string `json:"stage"`
	HandNumber int `json:"hand_number"`
	DealerSeat int `json:"dealer_seat"`
	SmallBlind int `json:"small_blind"`
	BigBlind int `json:"big_blind"`
	PotTotal int `json:"pot_total"`
	Community []cards.Card `json:"community"`
	MaxSeats int `json:"max_seats"`
	Players []PlayerView `json:"players"`
	CurrentActor string `json:"current_actor,omitempty"`
	ViewerActions []string `json:"viewer_actions,omitempty"`
	CallAmount int `json:"call_amount,omitempty"`
	MinRaiseTarget int `json:"min_raise_target,omitempty"`
	TurnSeconds int `json:"turn_seconds"`
	TimeRemaining float64 `json:"time_remaining,omitempty"`
	BankFunding bool `json:"bank_funding,omitempty"`
	ActorBankRemain float64 `json:"actor_bank_remaining,omitempty"`
}

type PlayerActionMsg struct {
	UserID string `json:"user_id"`
	Action string `json:"action"`
	Amount int `json:"amount,omitempty"`
}

type WinnerResult struct {
	UserID string `json:"user_id"`
	Amount int `json:"amount"`
	Category string `json:"category,omitempty"`
}

type HandResultMsg struct {
	Winners []WinnerResult `json:"winners"`
	Community []cards.Card `json:"community"`
	RevealedHole map[string][]cards.Card `json:"revealed_hole,omitempty"`
}

type PlayerJoinedMsg struct {
	UserID string `json:"user_id"`
	Seat int `json:"seat"`
}

type PlayerLeftMsg struct {
	UserID string `json:"user_id"`
}

type PlayerDisconnectedMsg struct {
	UserID string `json:"user_id"`
	GraceSeconds int `json:"grace_seconds"`
}

type PlayerReconnectedMsg struct {
	UserID string `json:"user_id"`
}

type ChipsUpdatedMsg struct {
	UserID string `json:"user_id"`
	Chips int `json:"chips"`
	Delta int `json:"delta"`
}

type LedgerEntryMsg struct {
	SessionID string `json:"session_id"`
	UserID string `json:"user_id"`
	Type string `json:"type"`
	Amount int `json:"amount"`
	Admin string `json:"admin"`
	Note string `json:"note,omitempty"`
	Timestamp string `json:"timestamp"`
}

type LedgerMsg struct {
	Entries []LedgerEntryMsg `json:"entries"`
}

type StandingEntryMsg struct {
	UserID string `json:"user_id"`
	Delta int `json:"delta"`
}

type StandingsMsg struct {
	Standings []StandingEntryMsg `json:"standings"`
}

type ChatBroadcastMsg struct {
	UserID string `json:"user_id"`
	Text string `json:"text"`
}

type TableSummaryMsg struct {
	TableID string `json:"table_id"`
	SmallBlind int `json:"small_blind"`
	BigBlind int `json:"big_blind"`
	MaxSeats int `json:"max_seats"`
	PlayersCount int `json:"players_count"`
}

type TableCreatedMsg struct {
	Table TableSummaryMsg `json:"table"`
}

type TableDeletedMsg struct {
	TableID string `json:"table_id"`
}

type TablesListMsg struct {
	Tables []TableSummaryMsg `json:"tables"`
}

type PongMsg struct{}

// Encode wraps a typed payload with its envelope Type and marshals it to a
// single JSON object, e.g. {"type":"pong",...payload fields}.
func Encode(t Type, payload any) ([]byte, error) {
	fields, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(fields, &m); err != nil {
		return nil, fmt.Errorf("protocol: encode %s: %w", t, err)
	}
	typeJSON, _ := json.Marshal(t)
	m["type"] = typeJSON
	return json.Marshal(m)
}

// Decode parses a raw inbound frame into its concrete message type,
// returning ErrBadJSON on malformed JSON and ErrUnknownType on an
// unrecognized discriminator
func Decode(raw []byte) (Type, any, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", nil, ErrBadJSON
	}

	var payload any
	switch env.Type {
	case TypeRegister:
		payload = &RegisterMsg{}
	case TypeLogin:
		payload = &LoginMsg{}
	case TypeRefreshToken:
		payload = &RefreshTokenMsg{}
	case TypeAuth:
		payload = &AuthMsg{}
	case TypePing:
		payload = &PingMsg{}
	case TypeJoinTable:
		payload = &JoinTableMsg{}
	case TypeLeaveTable:
		payload = &LeaveTableMsg{}
	case TypeStandUp:
		payload = &StandUpMsg{}
	case TypeAction:
		payload = &ActionMsg{}
	case TypeChat:
		payload = &ChatMsg{}
	case TypeStartGame:
		payload = &StartGameMsg{}
	case TypeCreateTable:
		payload = &CreateTableMsg{}
	case TypeDeleteTable:
		payload = &DeleteTableMsg{}
	case TypeGiveChips:
		payload = &GiveChipsMsg{}
	case TypeTakeChips:
		payload = &TakeChipsMsg{}
	case TypeSetChips:
		payload = &SetChipsMsg{}
	case TypeGetLedger:
		payload = &GetLedgerMsg{}
	case TypeGetStandings:
		payload = &GetStandingsMsg{}
	case TypeEndSession:
		payload = &EndSessionMsg{}
	default:
		return "", nil, ErrUnknownType
	}

	if err := json.Unmarshal(raw, payload); err != nil {
		return "", nil, ErrBadJSON
	}
	return env.Type, payload, nil
}
