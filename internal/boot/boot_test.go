//go:build !baremetal

package boot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"irqdemo-go/dispatch"
	"irqdemo-go/hal"
	"irqdemo-go/services/config"
)

func testBoard() hal.Board {
	b := hal.DefaultBoard()
	b.Console = io.Discard
	return b
}

func TestStartPublishesConfigAndRuns(t *testing.T) {
	app, err := StartWith(testBoard(), "")
	require.NoError(t, err)
	assert.Equal(t, "host", app.Config.Board)

	sub := app.Bus.NewConnection("test").Subscribe(config.Topic("dispatcher"))
	select {
	case msg := <-sub.Channel():
		dc, ok := msg.Payload.(config.DispatcherConfig)
		require.True(t, ok)
		assert.Equal(t, app.Config.Dispatcher.Capacity, dc.Capacity)
	case <-time.After(time.Second):
		t.Fatal("no retained dispatcher config")
	}

	ran := make(chan int32, 1)
	require.NoError(t, app.Disp.Handle(5, "probe", func(arg int32) error { ran <- arg; return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, func(context.Context) error {
			return app.Disp.Submit(dispatch.Item(5, 42))
		})
	}()

	select {
	case v := <-ran:
		assert.Equal(t, int32(42), v)
	case <-time.After(time.Second):
		t.Fatal("probe not dispatched")
	}
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestStartRejectsMissingConfigFile(t *testing.T) {
	_, err := StartWith(testBoard(), "/nonexistent/irqdemo.yaml")
	assert.Error(t, err)
}

func TestDriveButtonFromLines(t *testing.T) {
	pin := hal.NewSimPin(14, true)
	in := strings.NewReader("p\nr\n")
	err := DriveButton(context.Background(), in, pin, true, testLogger())
	require.NoError(t, err)
	assert.True(t, pin.Get(), "released level for an active-low button")
}

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
