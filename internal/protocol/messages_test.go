package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode_JoinTableWithSeat(t *testing.T) {
	raw := []byte(`{"type":"join_table","table_id":"t1","seat":3}`)
	typ, msg, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TypeJoinTable, typ)
	jt, ok := msg.(*JoinTableMsg)
	require.True(t, ok)
	require.Equal(t, "t1", jt.TableID)
	require.NotNil(t, jt.Seat)
	require.Equal(t, 3, *jt.Seat)
}

func TestDecode_JoinTableWithoutSeat(t *testing.T) {
	raw := []byte(`{"type":"join_table","table_id":"t1"}`)
	_, msg, err := Decode(raw)
	require.NoError(t, err)
	jt := msg.(*JoinTableMsg)
	require.Nil(t, jt.Seat)
}

func TestDecode_BadJSON(t *testing.T) {
	_, _, err := Decode([]byte(`{not json`))
	require.ErrorIs(t, err, ErrBadJSON)
}

func TestDecode_UnknownType(t *testing.T) {
	_, _, err := Decode([]byte(`{"type":"nonsense"}`))
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecode_ActionMessage(t *testing.T) {
	raw := []byte(`{"type":"action","kind":"raise","amount":50}`)
	typ, msg, err := Decode(raw)
	require.NoError(t, err)
	require.Equal(t, TypeAction, typ)
	a := msg.(*ActionMsg)
	require.Equal(t, "raise", a.Kind)
	require.Equal(t, 50, a.Amount)
}

func TestEncode_GameStateRoundTrip(t *testing.T) {
	gs := GameStateMsg{
		TableID:    "t1",
		Stage:      "flop",
		HandNumber: 2,
		DealerSeat: 0,
		PotTotal:   30,
		MaxSeats:   6,
	}
	raw, err := Encode(TypeGameState, gs)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "game_state", decoded["type"])
	require.Equal(t, "t1", decoded["table_id"])
	require.Equal(t, "flop", decoded["stage"])
}

func TestEncode_ErrorMessage(t *testing.T) {
	raw, err := Encode(TypeError, ErrorMsg{Message: "nope", Code: CodeNotAdmin})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Equal(t, "error", decoded["type"])
	require.Equal(t, "NOT_ADMIN", decoded["code"])
}
