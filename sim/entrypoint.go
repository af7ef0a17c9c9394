package sim

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"sync"
	"syscall"
	"time"

	"github.com/encodeous/dvr/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

type Options struct {
	LogLevel slog.Level
	// LogPath additionally writes plain text logs to a file, if set
	LogPath string
	// Interval between ticks, 0 steps as fast as possible
	Interval time.Duration
	// Console receives colored logs, defaults to stderr
	Console io.Writer
}

func setupDebugging() {
	if state.DBG_debug {
		go func() {
			log.Println(http.ListenAndServe("0.0.0.0:6060", nil))
		}()
	}
}

// lockedWriter serializes writes from handlers that don't share a mutex
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

type loggerFactory struct {
	level   slog.Level
	console io.Writer
	file    io.Writer
}

func (f *loggerFactory) make(prefix string) *slog.Logger {
	handlers := make([]slog.Handler, 0)
	handlers = append(handlers,
		tint.NewHandler(f.console, &tint.Options{
			Level:        f.level,
			AddSource:    false,
			CustomPrefix: prefix,
			ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
				if attr.Key == "time" {
					return slog.Attr{}
				}
				return attr
			},
		}))
	if f.file != nil {
		handlers = append(handlers,
			slog.NewTextHandler(f.file, &slog.HandlerOptions{Level: f.level}).WithAttrs([]slog.Attr{slog.String("src", prefix)}))
	}
	return slog.New(slogmulti.Fanout(handlers...))
}

// Start builds the network described by cfg and runs it until cfg.Ticks ticks have passed, or until the
// routes stop changing if cfg.Ticks is 0. SIGINT or SIGTERM stops it early.
func Start(cfg *state.SimCfg, opts Options) (*VirtualNetwork, error) {
	setupDebugging()
	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(context.Canceled)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	lf := &loggerFactory{level: opts.LogLevel, console: &lockedWriter{w: console}}
	if opts.LogPath != "" {
		err := os.MkdirAll(path.Dir(opts.LogPath), 0700)
		if err != nil {
			return nil, err
		}
		f, err := os.OpenFile(opts.LogPath, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0700)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		lf.file = &lockedWriter{w: f}
	}

	cfg.ApplyTunables()
	v := NewVirtualNetwork(cfg, lf.make("sim"), func(node state.NodeCfg) *slog.Logger {
		return lf.make(node.DisplayName())
	})

	if state.DBG_log_route_changes {
		v.Trace = NewTrace()
		defer v.Trace.Close()
		ch, unsubscribe := v.Trace.Subscribe(state.TraceBufferSize)
		defer unsubscribe()
		stop := make(chan struct{})
		wg := sync.WaitGroup{}
		wg.Go(func() {
			for {
				select {
				case msg := <-ch:
					v.Log.Info("route change", "change", msg.(RouteChange).String())
				case <-stop:
					return
				}
			}
		})
		defer func() {
			close(stop)
			wg.Wait()
		}()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		select {
		case <-c:
			cancel(errors.New("received shutdown signal"))
		case <-ctx.Done():
			return
		}
	}()

	v.Log.Info("simulating network", "nodes", len(v.Nodes), "links", len(v.Links), "seed", cfg.Seed)
	switch {
	case opts.Interval > 0:
		err := v.Run(ctx, opts.Interval, cfg.Ticks)
		if err != nil {
			return v, err
		}
	case cfg.Ticks > 0:
		for v.Tick < cfg.Ticks && ctx.Err() == nil {
			v.Step()
		}
	default:
		if !v.StepUntilStable(state.StableTicks, state.MaxSimTicks) {
			v.Log.Warn("network did not stabilize", "tick", v.Tick)
		}
	}
	if state.DBG_log_route_table {
		for _, node := range v.Nodes {
			node.Router.Logger.Info("route table\n" + node.Router.StringRoutes())
		}
	}
	return v, nil
}
