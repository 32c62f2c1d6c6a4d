package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"time"

	"github.com/robotalks/corelink.go/pkg/app/inverter"
	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/bridge"
)

func init() {
	inverter.SetupFlags()
	bridge.SetupFlags()
}

func main() {
	flag.Parse()

	sys := inverter.NewConfig().MustNewSystem()
	defer sys.Close()
	br := bridge.NewConfig().MustNewBridge(bridge.Device{
		Params:   inverter.Params,
		Accessor: sys.Params,
		Ready:    sys.Ready,
	})
	defer br.Close()

	comms := fx.NewLoop()
	comms.Interval = 10 * time.Millisecond
	comms.Add(br)

	err := fx.NewRunner().HandleSignals().
		Go(fx.NamedRun("owner", sys), fx.NamedRun("comms", comms)).
		Wait()
	if err != nil {
		log.Fatalln(err)
	}
}
