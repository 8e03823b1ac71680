package bus

import (
	"encoding/json"
	"testing"
	"time"

	"NoteFM/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToUserClients(t *testing.T) {
	h := NewEditorHub()
	go h.Run()
	defer h.Stop()

	client := &Client{Hub: h, Send: make(chan []byte, 16), UserID: 1}
	h.Register(client)

	require.Eventually(t, func() bool {
		return h.ClientCount(1) == 1
	}, time.Second, 5*time.Millisecond)

	h.Publish(1, &model.WebSocketMessage{Type: "notify", Payload: "hello"})

	select {
	case data := <-client.Send:
		var msg model.WebSocketMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, "notify", msg.Type)
	case <-time.After(time.Second):
		t.Fatal("消息未送达客户端")
	}

	// 其他用户收不到
	other := &Client{Hub: h, Send: make(chan []byte, 16), UserID: 2}
	h.Register(other)
	require.Eventually(t, func() bool {
		return h.ClientCount(2) == 1
	}, time.Second, 5*time.Millisecond)

	h.Publish(1, &model.WebSocketMessage{Type: "notify"})
	assert.Never(t, func() bool {
		return len(other.Send) > 0
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestSlowClientEvictedWithoutBlockingHub(t *testing.T) {
	h := NewEditorHub()
	go h.Run()
	defer h.Stop()

	// 容量为1的发送缓冲区模拟写不动的连接
	slow := &Client{Hub: h, Send: make(chan []byte, 1), UserID: 1}
	h.Register(slow)
	require.Eventually(t, func() bool {
		return h.ClientCount(1) == 1
	}, time.Second, 5*time.Millisecond)

	// 第一条消息填满缓冲区
	h.Publish(1, &model.WebSocketMessage{Type: "progress"})
	require.Eventually(t, func() bool {
		return len(slow.Send) == 1
	}, time.Second, 5*time.Millisecond)

	// 第二条消息写不进去，慢客户端被移除
	h.Publish(1, &model.WebSocketMessage{Type: "progress"})
	require.Eventually(t, func() bool {
		return h.ClientCount(1) == 0
	}, time.Second, 5*time.Millisecond)

	// 主循环必须仍然存活：新连接能注册成功，消息照常下发
	fresh := &Client{Hub: h, Send: make(chan []byte, 16), UserID: 2}
	registered := make(chan struct{})
	go func() {
		h.Register(fresh)
		close(registered)
	}()
	select {
	case <-registered:
	case <-time.After(2 * time.Second):
		t.Fatal("慢客户端被移除后主循环不再接受注册")
	}

	h.Publish(2, &model.WebSocketMessage{Type: "notify"})
	select {
	case <-fresh.Send:
	case <-time.After(time.Second):
		t.Fatal("慢客户端被移除后消息不再下发")
	}
}
