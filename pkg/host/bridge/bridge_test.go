package bridge

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/corelink.go/pkg/app/inverter"
	fx "github.com/robotalks/corelink.go/pkg/framework"
	"github.com/robotalks/corelink.go/pkg/host/comm"
	"github.com/robotalks/corelink.go/pkg/host/comm/stream"
	"github.com/robotalks/corelink.go/pkg/host/comm/websocket"
)

func testConfig() *Config {
	conf := NewConfig()
	conf.Info.Ref = comm.DeviceRef{Type: "inverter", ID: "test"}
	conf.MQTTBrokerURL = ""
	conf.StreamAddr = "127.0.0.1:0"
	conf.WebsocketAddr = "127.0.0.1:0"
	conf.AdminAddr = "127.0.0.1:0"
	return conf
}

func startBridge(t *testing.T) *Bridge {
	sysConf := inverter.NewConfig()
	sysConf.FlashPath = ""
	sysConf.MapShared = false
	sysConf.LoopInterval = 200 * time.Microsecond
	sysConf.ControlPeriod = 100 * time.Microsecond
	sysConf.RefreshPeriod = time.Hour
	sys, err := sysConf.NewSystem()
	require.NoError(t, err)

	b, err := testConfig().NewBridge(Device{
		Params:   inverter.Params,
		Accessor: sys.Params,
		Ready:    sys.Ready,
	})
	require.NoError(t, err)
	loop := fx.NewLoop()
	b.AddToLoop(loop)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sys.Run(ctx) }()
	go func() { defer wg.Done(); loop.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
		b.Close()
		sys.Close()
	})
	return b
}

func runConn(t *testing.T, rw comm.PacketReadWriter) *comm.Conn {
	conn := comm.NewConn(rw)
	done := make(chan error, 1)
	go func() { done <- conn.Run(context.Background()) }()
	t.Cleanup(func() {
		conn.Close()
		<-done
	})
	return conn
}

func httpGet(t *testing.T, url string) (int, string) {
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestBridgeTransports(t *testing.T) {
	b := startBridge(t)
	ctx := context.Background()

	rw, err := stream.Dial(ctx, b.StreamAddr().String())
	require.NoError(t, err)
	tcp := runConn(t, rw)
	require.NoError(t, tcp.Set(ctx, "v_set", "235"))

	wsrw, err := websocket.Dial("ws://" + b.WebsocketAddr().String() + "/")
	require.NoError(t, err)
	ws := runConn(t, wsrw)
	val, err := ws.Get(ctx, "v_set", true)
	require.NoError(t, err)
	assert.Equal(t, "235.0V", val.Text)
}

func TestAdminEndpoints(t *testing.T) {
	b := startBridge(t)
	base := "http://" + b.AdminAddr().String()

	require.Eventually(t, func() bool {
		status, _ := httpGet(t, base+"/ready")
		return status == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)
	status, _ := httpGet(t, base+"/live")
	assert.Equal(t, http.StatusOK, status)

	rw, err := stream.Dial(context.Background(), b.StreamAddr().String())
	require.NoError(t, err)
	require.NoError(t, runConn(t, rw).Set(context.Background(), "kp", "1.5"))
	status, body := httpGet(t, base+"/metrics")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "corelink_rpc_calls_total")
	assert.Contains(t, body, "corelink_rpc_dispatched_total")
}

func TestNotReady(t *testing.T) {
	conf := testConfig()
	conf.StreamAddr, conf.WebsocketAddr, conf.AdminAddr = "", "", ""
	b, err := conf.NewBridge(Device{
		Params: inverter.Params,
		Ready:  func() error { return errors.New("stalled") },
	})
	require.NoError(t, err)
	defer b.Close()
	assert.Nil(t, b.StreamAddr())

	rec := httptest.NewRecorder()
	b.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	rec = httptest.NewRecorder()
	b.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequiresRef(t *testing.T) {
	conf := testConfig()
	conf.Info.Ref.ID = ""
	_, err := conf.NewBridge(Device{Params: inverter.Params})
	assert.Error(t, err)
}
