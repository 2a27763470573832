package main

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"autocraft/internal/agent"
	"autocraft/internal/config"
	"autocraft/internal/decision"
	"autocraft/internal/logging"
	"autocraft/internal/world"
)

// session is one agent run: the event loop, the terminal reader and the
// config watcher share an errgroup and stop together.
type session struct {
	gw      world.Gateway
	engine  decision.Engine
	console *Console
	in      io.Reader
	// command handles a terminal line; nil submits it to the agent.
	command func(a *agent.Agent, line string)
}

func (s *session) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logging.Boot("received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	opts := agent.OptionsFromConfig(cfg)
	opts.OnDecision = s.console.Decision
	a := agent.New(s.gw, s.engine, opts)
	defer a.Close()

	handle := func(line string) {
		if s.command != nil {
			s.command(a, line)
			return
		}
		submit(s.console, a, line)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.Run(gctx) })
	g.Go(func() error { return s.console.ReadCommands(gctx, s.in, handle) })

	if _, err := os.Stat(configPath); err == nil {
		w, err := config.NewWatcher(configPath, func(next *config.Config) {
			if err := logging.SetLevel(next.Logging.Level); err != nil {
				logging.Get(logging.CategoryConfig).Warn("ignoring log level: %v", err)
			}
			a.SetIdleDelay(next.GetIdleDelay())
			logging.Config("config reloaded")
		})
		if err != nil {
			logging.Get(logging.CategoryConfig).Warn("config hot reload disabled: %v", err)
		} else {
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	err := g.Wait()
	switch {
	case errors.Is(err, errQuit):
		s.console.System("Goodbye.")
		return nil
	case errors.Is(err, world.ErrDisconnected):
		s.console.System("Disconnected.")
		return nil
	default:
		return err
	}
}

// submit forwards a terminal line to the agent.
func submit(console *Console, a *agent.Agent, line string) {
	if !a.Ready() {
		console.System("Bot is not connected or ready yet.")
		return
	}
	a.Submit(line)
}
