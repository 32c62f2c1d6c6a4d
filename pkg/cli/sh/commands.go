package sh

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/abiosoft/ishell"

	"github.com/robotalks/corelink.go/pkg/host/comm"
	"github.com/robotalks/corelink.go/pkg/host/msgs"
)

// DefaultWatchDuration is how long watch prints changes without argument.
const DefaultWatchDuration = 10 * time.Second

var (
	// DiscoverCmd discovers devices on the MQTT broker.
	DiscoverCmd = ishell.Cmd{
		Name:    "discover",
		Aliases: []string{"l"},
		Help:    "",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.CommandContext()
			defer cancel()
			infoList, err := s.Config.Discover(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			if infoList == nil {
				infoList = []comm.DeviceInfo{}
			}
			s.Print(c, infoList, func() string {
				if len(infoList) == 0 {
					return "No devices found"
				}
				var out string
				for n, info := range infoList {
					if n > 0 {
						out += "\n"
					}
					out += FormatInfo(info)
				}
				return out
			})
		},
	}

	// ConnectCmd connects a device.
	ConnectCmd = ishell.Cmd{
		Name:    "connect",
		Aliases: []string{"c"},
		Help:    "[URL] | [TYPE ID]",
		Func: func(c *ishell.Context) {
			s := ShellFrom(c)
			conf := *s.Config
			switch len(c.Args) {
			case 0:
			case 1:
				conf.URL = c.Args[0]
			default:
				conf.Ref = comm.DeviceRef{Type: c.Args[0], ID: c.Args[1]}
			}
			if err := s.Connect(&conf); err != nil {
				c.Err(err)
			}
		},
	}

	// DisconnectCmd disconnects current device.
	DisconnectCmd = ishell.Cmd{
		Name:    "disconnect",
		Aliases: []string{"d"},
		Help:    "",
		Func: func(c *ishell.Context) {
			ShellFrom(c).Disconnect()
		},
	}

	// ListCmd lists parameters.
	ListCmd = ishell.Cmd{
		Name:    "list",
		Aliases: []string{"ls"},
		Help:    "",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			ctx, cancel := s.CommandContext()
			defer cancel()
			list, err := s.Session.Conn.List(ctx)
			if err != nil {
				c.Err(err)
				return
			}
			s.Print(c, list, func() string { return FormatParams(list) })
		}),
	}

	// GetCmd reads parameters.
	GetCmd = ishell.Cmd{
		Name:    "get",
		Aliases: []string{"g"},
		Help:    "NAME... [-u]",
		Func: MustBeConnected(func(c *ishell.Context) {
			s := ShellFrom(c)
			var args []string
			withUnit := false
			for _, arg := range c.Args {
				if arg == "-u" {
					withUnit = true
					continue
				}
				args = append(args, arg)
			}
			if len(args) == 0 {
				c.Err(fmt.Errorf("NAME required"))
				return
			}
			ctx, cancel := s.CommandContext()
			defer cancel()
			values := make([]*msgs.ParamValue, 0, len(args))
			for _, name := range args {
				val, err := s.Session.Conn.Get(ctx, name, withUnit)
				if err != nil {
					c.Err(fmt.Errorf("%s: %w", name, err))
					return
				}
				values = append(values, val)
			}
			s.Print(c, values, func() string { return FormatValues(values) })
		}),
	}

	// SetCmd sets a parameter.
	SetCmd = ishell.Cmd{
		Name:    "set",
		Aliases: []string{"s"},
		Help:    "NAME VALUE",
		Func: MustBeConnected(func(c *ishell.Context) {
			if len(c.Args) != 2 {
				c.Err(fmt.Errorf("NAME and VALUE required"))
				return
			}
			s := ShellFrom(c)
			ctx, cancel := s.CommandContext()
			defer cancel()
			if err := s.Session.Conn.Set(ctx, c.Args[0], c.Args[1]); err != nil {
				c.Err(fmt.Errorf("%s: %w", c.Args[0], err))
				return
			}
			s.Print(c, msgs.NewCommandOK(), func() string { return "OK" })
		}),
	}

	// WatchCmd prints parameter changes for a while.
	WatchCmd = ishell.Cmd{
		Name:    "watch",
		Aliases: []string{"w"},
		Help:    "[SECONDS]",
		Func: MustBeConnected(func(c *ishell.Context) {
			dur := DefaultWatchDuration
			if len(c.Args) > 0 {
				secs, err := strconv.ParseFloat(c.Args[0], 64)
				if err != nil || secs <= 0 {
					c.Err(fmt.Errorf("invalid SECONDS: %q", c.Args[0]))
					return
				}
				dur = time.Duration(secs * float64(time.Second))
			}
			s := ShellFrom(c)
			timeout := time.After(dur)
			for {
				select {
				case msg := <-s.Session.Conn.Events:
					ev, ok := msg.(*msgs.ParamChanged)
					if !ok {
						continue
					}
					s.Print(c, ev.Values, func() string { return FormatValues(ev.Values) })
				case <-timeout:
					return
				}
			}
		}),
	}
)

// Main is a helper to provide a single call in main.
func Main() {
	flag.Parse()
	New(NewConfig()).WithAutoConnect(true).Run(flag.Args()...)
}
