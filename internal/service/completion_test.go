package service

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/docchat/internal/domain"
	"github.com/cloo-solutions/docchat/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func openStream(t *testing.T, stream *scriptedStream) *DeltaStream {
	t.Helper()
	client := new(MockChatClient)
	client.On("StreamChat", mock.Anything, mock.Anything).Return(stream, nil)

	ds, err := NewCompletionStreamer(client, nil).StreamCompletion(context.Background(), "sys", nil, "prompt")
	require.NoError(t, err)
	return ds
}

func collect(ds *DeltaStream) ([]string, error) {
	var deltas []string
	for delta, err := range ds.All() {
		if err != nil {
			return deltas, err
		}
		deltas = append(deltas, delta)
	}
	return deltas, nil
}

func TestCompletionStreamer_Unavailable(t *testing.T) {
	ds, err := NewCompletionStreamer(nil, nil).StreamCompletion(context.Background(), "sys", nil, "prompt")

	assert.Nil(t, ds)
	assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
}

func TestCompletionStreamer_PassesRequest(t *testing.T) {
	client := new(MockChatClient)
	history := []domain.Turn{{Role: domain.RoleUser, Text: "before"}}
	client.On("StreamChat", mock.Anything, openai.ChatRequest{
		SystemInstruction: "sys",
		History:           history,
		Message:           "prompt",
	}).Return(newScriptedStream(nil), nil)

	ds, err := NewCompletionStreamer(client, nil).StreamCompletion(context.Background(), "sys", history, "prompt")

	require.NoError(t, err)
	require.NoError(t, ds.Close())
	client.AssertExpectations(t)
}

func TestCompletionStreamer_OpenFailure(t *testing.T) {
	client := new(MockChatClient)
	upstream := errors.New("500")
	client.On("StreamChat", mock.Anything, mock.Anything).Return(nil, upstream)

	ds, err := NewCompletionStreamer(client, nil).StreamCompletion(context.Background(), "sys", nil, "prompt")

	assert.Nil(t, ds)
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.ErrorIs(t, err, upstream)
}

func TestDeltaStream_YieldsFragmentsInOrder(t *testing.T) {
	stream := newScriptedStream(nil, "Hel", "lo")
	ds := openStream(t, stream)

	deltas, err := collect(ds)

	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo"}, deltas)
	assert.Equal(t, 1, stream.closed())
}

func TestDeltaStream_IsSingleUse(t *testing.T) {
	ds := openStream(t, newScriptedStream(nil, "a"))

	_, err := collect(ds)
	require.NoError(t, err)

	deltas, err := collect(ds)
	assert.Empty(t, deltas)
	assert.ErrorIs(t, err, domain.ErrStreamConsumed)
}

func TestDeltaStream_StopConsumingClosesUpstream(t *testing.T) {
	stream := newScriptedStream(nil, "a", "b", "c", "d")
	ds := openStream(t, stream)

	var got []string
	for delta, err := range ds.All() {
		require.NoError(t, err)
		got = append(got, delta)
		if len(got) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, 1, stream.closed())
	assert.Equal(t, 2, stream.received())
}

func TestDeltaStream_FailureBeforeFirstDelta(t *testing.T) {
	upstream := errors.New("reset")
	ds := openStream(t, newScriptedStream(upstream))

	deltas, err := collect(ds)

	assert.Empty(t, deltas)
	assert.ErrorIs(t, err, domain.ErrCompletionFailed)
	assert.ErrorIs(t, err, upstream)
}

func TestDeltaStream_FailureMidStreamKeepsPartial(t *testing.T) {
	upstream := errors.New("reset")
	stream := newScriptedStream(upstream, "Hel")
	ds := openStream(t, stream)

	deltas, err := collect(ds)

	assert.Equal(t, []string{"Hel"}, deltas)
	assert.ErrorIs(t, err, domain.ErrCompletionInterrupted)
	assert.NotErrorIs(t, err, domain.ErrCompletionFailed)
	assert.Equal(t, 1, stream.closed())
}

func TestDeltaStream_CloseIsIdempotent(t *testing.T) {
	stream := newScriptedStream(nil, "a")
	ds := openStream(t, stream)

	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())

	assert.Equal(t, 1, stream.closed())
	assert.Equal(t, 0, stream.received())
}
