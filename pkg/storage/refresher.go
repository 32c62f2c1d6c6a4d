package storage

import (
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/corelink.go/pkg/framework"
)

// DefaultRefreshPeriod is how often the value arrays are compared with flash.
const DefaultRefreshPeriod = time.Second

// Refresher programs changed snapshots from the owner loop.
type Refresher struct {
	Hooks  *Hooks
	Flash  Flash
	Period time.Duration

	buf     []uint32
	lastRun time.Time
}

// NewRefresher creates a Refresher.
func NewRefresher(hooks *Hooks, flash Flash) *Refresher {
	return &Refresher{
		Hooks:  hooks,
		Flash:  flash,
		Period: DefaultRefreshPeriod,
		buf:    make([]uint32, hooks.Words()),
	}
}

// Boot loads flash into the value arrays. A load error is logged and
// treated as an invalid snapshot.
func (r *Refresher) Boot() {
	words, valid, err := r.Flash.Load()
	if err != nil {
		glog.Errorf("flash load: %v", err)
		valid = false
	}
	glog.Infof("flash snapshot valid=%v words=%d", valid, len(words))
	r.Hooks.InitFromStorage(words, valid)
}

// Sync programs the snapshot if it changed, returning the words written.
func (r *Refresher) Sync() (int, error) {
	var index int
	n := r.Hooks.Refresh(r.buf, &index)
	if n == 0 {
		return 0, nil
	}
	if err := r.Flash.Program(r.buf[index : index+n]); err != nil {
		r.Hooks.Invalidate()
		return 0, err
	}
	glog.V(2).Infof("programmed %d words", n)
	return n, nil
}

// Control implements framework.Controller.
func (r *Refresher) Control(cc fx.ControlContext) error {
	now := cc.Time()
	if !r.lastRun.IsZero() && now.Sub(r.lastRun) < r.Period {
		return nil
	}
	r.lastRun = now
	_, err := r.Sync()
	return err
}

// AddToLoop implements framework.LoopAdder.
func (r *Refresher) AddToLoop(l *fx.Loop) {
	l.AddController(fx.PrLvStorage, r)
}
