// services/ctl/ctl.go
//
// Control surface: a line protocol over a local stream socket, mirrored
// on the bus for in-process callers. Every endpoint maps onto the rail
// controller or the event link; replies are "ok" or "err <code>".
package ctl

import (
	"bufio"
	"context"
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/google/shlex"

	"fpcontrol-go/bus"
	"fpcontrol-go/errcode"
	"fpcontrol-go/pkg/log"
	"fpcontrol-go/services/eventlink"
	"fpcontrol-go/types"
)

// Endpoint names. These are the command vocabulary of the socket line
// protocol and of the bus mirror at {"ctl","command",<endpoint>}.
const (
	EndpointPinctlSet   = "pinctl_set"
	EndpointHwReset     = "hw_reset"
	EndpointDevicePower = "device_power"
	EndpointEvent       = "netlink_event"
	EndpointIoctl       = "ioctl"
)

// Rail is the slice of the rail controller the control surface drives.
type Rail interface {
	SelectPinConfig(name string) error
	SetPower(on bool) error
	Reset() error
}

// Transport opens a listener for the control socket. Registered by name
// so platform builds can swap the default unix transport out.
type Transport func(path string) (net.Listener, error)

var (
	transportsMu sync.Mutex
	transports   = map[string]Transport{
		"unix": func(path string) (net.Listener, error) {
			// A stale socket from an unclean shutdown blocks the bind.
			_ = os.Remove(path)
			return net.Listen("unix", path)
		},
	}
)

func RegisterTransport(name string, t Transport) {
	transportsMu.Lock()
	transports[name] = t
	transportsMu.Unlock()
}

func transport(name string) (Transport, bool) {
	transportsMu.Lock()
	defer transportsMu.Unlock()
	t, ok := transports[name]
	return t, ok
}

type Config struct {
	// Socket is the control socket path.
	Socket string `yaml:"socket"`
	// Transport selects a registered listener factory; default "unix".
	Transport string `yaml:"transport,omitempty"`
}

type Server struct {
	log  *log.Logger
	cfg  Config
	rail Rail
	link eventlink.Emitter

	mu sync.Mutex
	ln net.Listener
}

func New(cfg Config, rail Rail, link eventlink.Emitter, lg *log.Logger) *Server {
	if lg == nil {
		lg = log.Discard()
	}
	return &Server{log: lg.Named("ctl"), cfg: cfg, rail: rail, link: link}
}

// Dispatch executes one endpoint with its argument tokens. Shared by the
// socket server and the bus mirror, so both surfaces agree exactly.
func (s *Server) Dispatch(endpoint string, args []string) error {
	switch endpoint {
	case EndpointPinctlSet:
		if len(args) != 1 {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.pinctl_set", Msg: "want one configuration name"}
		}
		return s.rail.SelectPinConfig(strings.TrimSpace(args[0]))

	case EndpointHwReset:
		if len(args) != 1 || strings.TrimSpace(args[0]) != "reset" {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.hw_reset", Msg: "argument must be \"reset\""}
		}
		return s.rail.Reset()

	case EndpointDevicePower:
		if len(args) != 1 {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.device_power", Msg: "want on or off"}
		}
		switch strings.TrimSpace(args[0]) {
		case "on":
			return s.rail.SetPower(true)
		case "off":
			return s.rail.SetPower(false)
		default:
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.device_power", Msg: args[0]}
		}

	case EndpointEvent:
		if len(args) != 1 {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.event", Msg: "want one event name"}
		}
		ev, err := types.ParseEvent(strings.TrimSpace(args[0]))
		if err != nil {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.event", Msg: args[0]}
		}
		// Touch events go through the dedup latch like hardware touches;
		// everything else is sent unconditionally.
		switch ev {
		case types.EventTouchDown:
			return s.link.TouchEvent(true)
		case types.EventTouchUp:
			return s.link.TouchEvent(false)
		default:
			return s.link.Emit(ev)
		}

	case EndpointIoctl:
		if len(args) != 1 {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.ioctl", Msg: "want one command code"}
		}
		code, err := strconv.Atoi(strings.TrimSpace(args[0]))
		if err != nil {
			return &errcode.E{C: errcode.InvalidArgument, Op: "ctl.ioctl", Msg: args[0], Err: err}
		}
		return s.ioctl(types.Command(code))

	default:
		return &errcode.E{C: errcode.NotFound, Op: "ctl.dispatch", Msg: endpoint}
	}
}

func (s *Server) ioctl(cmd types.Command) error {
	switch cmd {
	case types.CmdReset:
		return s.rail.Reset()
	case types.CmdEnablePower:
		return s.rail.SetPower(true)
	case types.CmdDisablePower:
		return s.rail.SetPower(false)
	case types.CmdClearTouchFlag:
		s.link.ClearTouch()
		return nil
	default:
		return &errcode.E{C: errcode.NotSupported, Op: "ctl.ioctl", Msg: strconv.Itoa(int(cmd))}
	}
}

// reply formats the wire/bus answer for a dispatch result.
func reply(err error) string {
	if err == nil {
		return "ok"
	}
	return "err " + string(errcode.Of(err))
}

// Start binds the control socket, serves it, and attaches the bus
// mirror. It returns once listening; serving stops when ctx ends.
func (s *Server) Start(ctx context.Context, conn *bus.Connection) error {
	name := s.cfg.Transport
	if name == "" {
		name = "unix"
	}
	open, ok := transport(name)
	if !ok {
		return &errcode.E{C: errcode.NotSupported, Op: "ctl.start", Msg: "transport " + name}
	}
	ln, err := open(s.cfg.Socket)
	if err != nil {
		return errcode.Wrap(errcode.ChannelUnavailable, "ctl.start", err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.log.Info("control socket up", "transport", name, "path", s.cfg.Socket)

	go func() {
		<-ctx.Done()
		s.Close()
	}()
	go s.acceptLoop(ln)
	if conn != nil {
		// Subscribe before returning so the mirror is attached, as
		// documented, by the time Start's caller can publish requests.
		sub := conn.Subscribe(bus.T("ctl", "command", bus.WildcardOne))
		go s.mirrorLoop(ctx, conn, sub)
	}
	return nil
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		c, err := ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.log.Warn("accept failed", "err", err)
			}
			return
		}
		go s.serveConn(c)
	}
}

func (s *Server) serveConn(c net.Conn) {
	defer c.Close()
	sc := bufio.NewScanner(c)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		tokens, err := shlex.Split(line)
		if err != nil || len(tokens) == 0 {
			s.log.Warn("unparseable control line", "line", line)
			s.writeLine(c, reply(errcode.InvalidArgument))
			continue
		}
		err = s.Dispatch(tokens[0], tokens[1:])
		if err != nil {
			s.log.Warn("command failed", "endpoint", tokens[0], "err", err)
		} else {
			s.log.Debug("command ok", "endpoint", tokens[0])
		}
		s.writeLine(c, reply(err))
	}
}

func (s *Server) writeLine(c net.Conn, line string) {
	if _, err := c.Write([]byte(line + "\n")); err != nil {
		s.log.Debug("reply not written", "err", err)
	}
}

// mirrorLoop answers {"ctl","command",<endpoint>} requests on the bus
// with the same semantics as the socket. Payload is the argument line.
func (s *Server) mirrorLoop(ctx context.Context, conn *bus.Connection, sub *bus.Subscription) {
	defer conn.Disconnect()
	for {
		select {
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			s.handleMirror(conn, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) handleMirror(conn *bus.Connection, msg *bus.Message) {
	if len(msg.Topic) != 3 {
		return
	}
	endpoint, ok := msg.Topic[2].(string)
	if !ok {
		return
	}
	line, ok := msg.Payload.(string)
	if !ok {
		conn.Reply(msg, reply(errcode.InvalidArgument), false)
		return
	}
	args, err := shlex.Split(line)
	if err != nil {
		conn.Reply(msg, reply(errcode.InvalidArgument), false)
		return
	}
	conn.Reply(msg, reply(s.Dispatch(endpoint, args)), false)
}

// Close stops the listener; in-flight connections finish their line.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	return ln.Close()
}
