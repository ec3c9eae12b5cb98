package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeJetStream struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakeJetStream) PublishMsg(m *nats.Msg, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.msgs = append(f.msgs, m)
	return &nats.PubAck{Stream: DefaultStream, Sequence: uint64(len(f.msgs))}, nil
}

func TestPublishSendsJSON(t *testing.T) {
	t.Parallel()

	js := &fakeJetStream{}
	pub := New(js, zap.NewNop())

	id, err := pub.Publish(context.Background(), "progress.rollup", map[string]string{"learnerId": "u1"})
	require.NoError(t, err)
	require.Equal(t, "PROGRESS-1", id)
	require.Len(t, js.msgs, 1)
	require.Equal(t, "progress.rollup", js.msgs[0].Subject)

	var body map[string]string
	require.NoError(t, json.Unmarshal(js.msgs[0].Data, &body))
	require.Equal(t, "u1", body["learnerId"])
}

func TestPublishWrapsError(t *testing.T) {
	t.Parallel()

	pub := New(&fakeJetStream{err: errors.New("no responders")}, nil)
	_, err := pub.Publish(context.Background(), "progress.rollup", 1)
	require.ErrorContains(t, err, "publish progress.rollup: no responders")
}

func TestStubModeSkipsPublish(t *testing.T) {
	t.Parallel()

	pub, err := Connect("", "", nil, zap.NewNop())
	require.NoError(t, err)
	id, err := pub.Publish(context.Background(), "progress.rollup", "x")
	require.NoError(t, err)
	require.Empty(t, id)
	require.NoError(t, pub.Close())
}

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	t.Parallel()

	_, err := New(&fakeJetStream{}, nil).Publish(context.Background(), "s", make(chan int))
	require.ErrorContains(t, err, "marshal payload")
}
