package websocket

import (
	"context"
	"reflect"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"github.com/gtaEPIC/EZ-VDONINJA-LINK/config"
	"github.com/gtaEPIC/EZ-VDONINJA-LINK/core"
	"github.com/gtaEPIC/EZ-VDONINJA-LINK/session"
)

// NewServer builds the socket.io server with CORS from config. Wiring into
// the coordinator happens in Attach, the broadcaster needs the server first.
func NewServer(cfg config.Config) *socketio.Server {
	opts := socketio.DefaultServerOptions()
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)

	origins := make([]any, 0, len(cfg.CORSOrigins))
	for _, origin := range cfg.CORSOrigins {
		origins = append(origins, origin)
	}
	opts.SetCors(&types.Cors{
		Origin:      origins,
		Credentials: true,
	})

	return socketio.NewServer(nil, opts)
}

// Attach wires socket connections into the coordinator: one participant per
// connection, the client/room channels routed through the dispatcher, and
// transport disconnects cascading the same cleanup as an explicit shutdown.
func Attach(srv *socketio.Server, co *session.Coordinator) {
	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	srv.On("connection", func(clients ...any) {
		socket, ok := clients[0].(*socketio.Socket)
		if !ok {
			return
		}

		client := co.Connect(&socketConn{socket: socket})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On(core.ClientChannel, func(datas ...any) {
			event, data, ack := parseEventArgs(datas)
			co.HandleClientEvent(context.Background(), client, event, data, ack)
		})

		//nolint:errcheck // Socket.IO event handlers do not return useful errors
		socket.On(core.RoomChannel, func(datas ...any) {
			event, data, ack := parseEventArgs(datas)
			co.HandleRoomEvent(context.Background(), client, event, data, ack)
		})

		socket.On("disconnect", func(...any) {
			co.Disconnect(client)
		})
	})
}

// socketConn adapts one socket.io connection to core.Conn.
type socketConn struct {
	socket *socketio.Socket
}

func (s *socketConn) ID() string {
	return string(s.socket.Id())
}

func (s *socketConn) Emit(channel string, event string, payload any) error {
	return s.socket.Emit(channel, event, payload)
}

func (s *socketConn) Join(room string) {
	s.socket.Join(socketio.Room(room))
}

func (s *socketConn) Leave(room string) {
	s.socket.Leave(socketio.Room(room))
}

func (s *socketConn) Disconnect() {
	s.socket.Disconnect(true)
}

// serverBroadcaster adapts the server's room fan-out to core.Broadcaster.
type serverBroadcaster struct {
	srv *socketio.Server
}

func NewBroadcaster(srv *socketio.Server) core.Broadcaster {
	return &serverBroadcaster{srv: srv}
}

func (b *serverBroadcaster) Broadcast(room string, channel string, event string, payload any) error {
	return b.srv.To(socketio.Room(room)).Emit(channel, event, payload)
}

// parseEventArgs splits an inbound message into (eventType, payload, ack).
// The trailing acknowledgement callback is optional.
func parseEventArgs(datas []any) (event string, data any, ack session.Ack) {
	ack, args := extractAck(datas)
	if len(args) == 0 {
		return "", nil, ack
	}
	event, _ = args[0].(string)
	if len(args) > 1 {
		data = args[1]
	}
	return event, data, ack
}

func extractAck(datas []any) (session.Ack, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	ack := wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

// wrapAck turns whatever callback shape the socket.io parser handed us into
// a single-payload Ack. Non-functions are not acks.
func wrapAck(candidate any) session.Ack {
	if candidate == nil {
		return nil
	}

	value := reflect.ValueOf(candidate)
	if !value.IsValid() || value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(payload any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			if i == 0 {
				args[i] = coerceValue(payload, typ.In(i))
			} else {
				args[i] = reflect.Zero(typ.In(i))
			}
		}
		defer func() {
			if rec := recover(); rec != nil {
				logrus.WithField("panic", rec).Warn("Ack callback panicked")
			}
		}()
		value.Call(args)
	}
}

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}

	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(targetType) {
		return rv
	}
	if targetType.Kind() == reflect.Slice && targetType.Elem().Kind() == reflect.Interface {
		return reflect.ValueOf([]any{value})
	}
	if targetType.Kind() == reflect.Interface && targetType.NumMethod() == 0 {
		return rv
	}
	if rv.Type().ConvertibleTo(targetType) {
		return rv.Convert(targetType)
	}
	return reflect.Zero(targetType)
}
