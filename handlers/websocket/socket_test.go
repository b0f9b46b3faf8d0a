package websocket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEventArgsWithoutAck(t *testing.T) {
	event, data, ack := parseEventArgs([]any{"JOIN", map[string]any{"name": "standup"}})

	require.Equal(t, "JOIN", event)
	require.Equal(t, map[string]any{"name": "standup"}, data)
	require.Nil(t, ack)
}

func TestParseEventArgsWithAck(t *testing.T) {
	var got any
	called := false
	cb := func(payload any) {
		called = true
		got = payload
	}

	event, data, ack := parseEventArgs([]any{"UPDATE", nil, cb})

	require.Equal(t, "UPDATE", event)
	require.Nil(t, data)
	require.NotNil(t, ack)

	ack("pong")
	require.True(t, called)
	require.Equal(t, "pong", got)
}

func TestParseEventArgsEventOnly(t *testing.T) {
	event, data, ack := parseEventArgs([]any{"LEAVE"})

	require.Equal(t, "LEAVE", event)
	require.Nil(t, data)
	require.Nil(t, ack)
}

func TestParseEventArgsEmpty(t *testing.T) {
	event, data, ack := parseEventArgs(nil)

	require.Empty(t, event)
	require.Nil(t, data)
	require.Nil(t, ack)
}

func TestWrapAckSliceAndErrorSignature(t *testing.T) {
	var gotArgs []any
	var gotErr error
	cb := func(args []any, err error) {
		gotArgs = args
		gotErr = err
	}

	ack := wrapAck(cb)
	require.NotNil(t, ack)

	ack(map[string]any{"name": "standup"})
	require.Equal(t, []any{map[string]any{"name": "standup"}}, gotArgs)
	require.NoError(t, gotErr)
}

func TestWrapAckNilPayload(t *testing.T) {
	var called bool
	var got any = "sentinel"
	ack := wrapAck(func(payload any) {
		called = true
		got = payload
	})

	ack(nil)
	require.True(t, called)
	require.Nil(t, got)
}

func TestWrapAckRejectsNonFunctions(t *testing.T) {
	require.Nil(t, wrapAck(nil))
	require.Nil(t, wrapAck("not a function"))
	require.Nil(t, wrapAck(map[string]any{}))
}
