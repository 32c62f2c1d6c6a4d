package comm

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/msgs"
	"github.com/robotalks/corelink.go/pkg/param"
)

// DefaultWatchPeriod is how often watched parameters are compared.
const DefaultWatchPeriod = 200 * time.Millisecond

// Server answers host commands on the requesting core.
type Server struct {
	Params   *param.Table
	Accessor *param.Accessor
	// Timeout bounds a ParamSet waiting for the owning core.
	Timeout time.Duration
	// WatchPeriod is the period of ParamChanged events, 0 disables them.
	WatchPeriod time.Duration

	pipe      Pipe
	lastWatch time.Time
	watched   map[*param.Descriptor]uint32
}

// NewServer creates a Server over rw.
func NewServer(rw PacketReadWriter, params *param.Table, accessor *param.Accessor) *Server {
	s := &Server{
		Params:      params,
		Accessor:    accessor,
		Timeout:     time.Second,
		WatchPeriod: DefaultWatchPeriod,
	}
	s.pipe.ReadWriter = rw
	s.pipe.Handler = HandleTypedMsgFunc(s.handleTypedMsg)
	return s
}

// Run serves commands until the transport closes or ctx is done.
func (s *Server) Run(ctx context.Context) error {
	return s.pipe.Run(ctx)
}

// Serve is Run for a server not added to a loop: changes are
// published on its own ticker.
func (s *Server) Serve(ctx context.Context) error {
	if s.WatchPeriod <= 0 {
		return s.Run(ctx)
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.watch(ctx)
	return s.Run(ctx)
}

func (s *Server) watch(ctx context.Context) {
	ticker := time.NewTicker(s.WatchPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := s.changes()
			if ev == nil {
				continue
			}
			if err := s.pipe.SendEventMsg(ev); err != nil {
				glog.Warningf("publish changes: %v", err)
				return
			}
		}
	}
}

// Close closes the transport.
func (s *Server) Close() error {
	return s.pipe.Close()
}

// AddToLoop implements LoopAdder.
func (s *Server) AddToLoop(l *fx.Loop) {
	l.Add(&s.pipe)
	if s.WatchPeriod > 0 {
		l.AddController(fx.PrLvLow, s)
	}
}

// Control implements Controller and publishes ParamChanged events.
func (s *Server) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if now.Sub(s.lastWatch) < s.WatchPeriod {
		return nil
	}
	s.lastWatch = now
	if ev := s.changes(); ev != nil {
		return s.pipe.SendEventMsg(ev)
	}
	return nil
}

func (s *Server) changes() *msgs.ParamChanged {
	first := s.watched == nil
	if first {
		s.watched = make(map[*param.Descriptor]uint32, s.Params.Len())
	}
	var ev msgs.ParamChanged
	for _, d := range s.Params.All() {
		v, err := s.Accessor.Get(d)
		if err != nil {
			continue
		}
		if last, ok := s.watched[d]; ok && last == v.Word {
			continue
		}
		s.watched[d] = v.Word
		if !first {
			ev.Values = append(ev.Values, &msgs.ParamValue{
				Name: d.Name,
				Text: param.FormatValue(d, v, true),
				Word: v.Word,
			})
		}
	}
	if len(ev.Values) == 0 {
		return nil
	}
	return &ev
}

func (s *Server) handleTypedMsg(ctx context.Context, msg msgs.Message, typed *msgs.Typed) error {
	if !typed.IsCommand() || typed.IsReply() {
		return nil
	}
	reply, err := s.execute(ctx, msg)
	if err != nil {
		glog.V(2).Infof("command %T failed: %v", msg, err)
		reply = msgs.NewCommandErr(err)
	}
	return s.pipe.SendCommandMsg(reply, typed.Sequence)
}

func (s *Server) execute(ctx context.Context, msg msgs.Message) (msgs.Message, error) {
	switch m := msg.(type) {
	case *msgs.ParamListQuery:
		return s.list(), nil
	case *msgs.ParamGet:
		d, err := s.Params.Find(m.Name)
		if err != nil {
			return nil, err
		}
		v, err := s.Accessor.Get(d)
		if err != nil {
			return nil, err
		}
		return &msgs.ParamValue{Name: d.Name, Text: param.FormatValue(d, v, m.WithUnit), Word: v.Word}, nil
	case *msgs.ParamSet:
		d, err := s.Params.Find(m.Name)
		if err != nil {
			return nil, err
		}
		if s.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.Timeout)
			defer cancel()
		}
		if err := s.Accessor.SetText(ctx, d, m.Text); err != nil {
			return nil, err
		}
		return msgs.NewCommandOK(), nil
	}
	return nil, fmt.Errorf("%T: %w", msg, msgs.ErrUnsupportedCommand)
}

func (s *Server) list() *msgs.ParamList {
	list := &msgs.ParamList{Params: make([]*msgs.ParamInfo, 0, s.Params.Len())}
	for _, d := range s.Params.All() {
		info := &msgs.ParamInfo{
			Name:  d.Name,
			Type:  d.Type.String(),
			Slot:  uint32(d.Slot),
			Unit:  d.Unit.Suffix(),
			Aux:   d.Aux.String(),
			Cases: d.Cases,
		}
		if d.Limits != nil {
			info.Range = fmt.Sprintf("%g..%g", d.Limits.Min, d.Limits.Max)
		}
		list.Params = append(list.Params, info)
	}
	return list
}
