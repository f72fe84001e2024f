package relay

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func completedToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                       { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}            { return t.done }
func (t *fakeToken) Error() error                     { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	open         bool
	token        mqtt.Token
	published    []published
	disconnected bool
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.published = append(p.published, published{topic: topic, qos: qos, payload: payload.([]byte)})
	return p.token
}

func (p *fakePublisher) IsConnectionOpen() bool  { return p.open }
func (p *fakePublisher) Disconnect(quiesce uint) { p.disconnected = true }

func TestMQTTDispatcher_Publish(t *testing.T) {
	pub := &fakePublisher{open: true, token: completedToken(nil)}
	d := newMQTTDispatcher(pub, MQTTConfig{}, nil)

	out := d.Send(context.Background(), "node2", SetRGB(0, 120, 255))

	assert.True(t, out.Success)
	assert.Equal(t, "OK (published)", out.Message)
	require.Len(t, pub.published, 1)
	assert.Equal(t, "iot/node2/cmd", pub.published[0].topic)
	assert.Equal(t, byte(1), pub.published[0].qos)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.published[0].payload, &body))
	assert.Equal(t, "set_rgb", body["cmd"])
	assert.Equal(t, 120.0, body["g"])
}

func TestMQTTDispatcher_CustomTopic(t *testing.T) {
	d := newMQTTDispatcher(&fakePublisher{}, MQTTConfig{Topic: "farm/{node}/in"}, nil)
	assert.Equal(t, "farm/node1/in", d.TopicFor("node1"))
}

func TestMQTTDispatcher_Failures(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		pub := &fakePublisher{open: false, token: completedToken(nil)}
		out := newMQTTDispatcher(pub, MQTTConfig{}, nil).Send(context.Background(), "node1", ForceSend())
		assert.False(t, out.Success)
		assert.Empty(t, pub.published)
	})

	t.Run("publish error", func(t *testing.T) {
		pub := &fakePublisher{open: true, token: completedToken(errors.New("not authorized"))}
		out := newMQTTDispatcher(pub, MQTTConfig{}, nil).Send(context.Background(), "node1", ForceSend())
		assert.False(t, out.Success)
		assert.Equal(t, "not authorized", out.Message)
	})

	t.Run("ack timeout", func(t *testing.T) {
		pub := &fakePublisher{open: true, token: &fakeToken{done: make(chan struct{})}}
		d := newMQTTDispatcher(pub, MQTTConfig{Timeout: 20 * time.Millisecond}, nil)
		out := d.Send(context.Background(), "node1", ForceSend())
		assert.False(t, out.Success)
		assert.Contains(t, out.Message, "deadline exceeded")
	})
}

func TestMQTTDispatcher_Close(t *testing.T) {
	pub := &fakePublisher{}
	newMQTTDispatcher(pub, MQTTConfig{}, nil).Close()
	assert.True(t, pub.disconnected)
}

func TestRetryConnect(t *testing.T) {
	t.Run("succeeds after failures", func(t *testing.T) {
		calls := 0
		err := retryConnect(context.Background(), 5, func() error {
			calls++
			if calls < 3 {
				return errors.New("refused")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after attempts", func(t *testing.T) {
		calls := 0
		err := retryConnect(context.Background(), 2, func() error {
			calls++
			return errors.New("refused")
		})
		assert.Error(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("stops on canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		calls := 0
		err := retryConnect(ctx, 5, func() error {
			calls++
			return errors.New("refused")
		})
		assert.Error(t, err)
		assert.LessOrEqual(t, calls, 1)
	})
}
