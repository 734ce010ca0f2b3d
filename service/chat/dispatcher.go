package chat

import (
	"context"

	"DChat/logger"
)

// HandlerFunc 处理一个上行事件帧。错误在这里就是终点：
// 记日志（必要时回 ack），绝不让连接或进程跟着挂。
type HandlerFunc func(ctx context.Context, c *Client, f *Frame) error

type Dispatcher struct {
	handlers map[string]HandlerFunc
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string]HandlerFunc)}
}

func (d *Dispatcher) Register(event string, h HandlerFunc) {
	d.handlers[event] = h
}

func (d *Dispatcher) Get(event string) HandlerFunc {
	h, ok := d.handlers[event]
	if !ok {
		logger.Infof("no handler for event=%s", event)
		return nil
	}
	return h
}
