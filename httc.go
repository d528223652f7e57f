// Package httc is an HTTP/1.1 server library built around three pieces: an
// incremental request parser, a response emitter with buffered and streamed
// output modes, and a URI router with parameter and wildcard patterns.
package httc

import (
	"fmt"

	"github.com/Sc1pex/httc/config"
	"github.com/Sc1pex/httc/internal/address"
	serverhttp "github.com/Sc1pex/httc/internal/server/http"
	"github.com/Sc1pex/httc/internal/server/tcp"
	"github.com/Sc1pex/httc/router"
)

type hooks struct {
	onStart func()
	onStop  func()
}

// App wires the router, the configuration and the servers together.
type App struct {
	cfg    *config.Config
	router *router.Router
	tcp    *tcp.Server
	hooks  hooks
}

func New(r *router.Router) *App {
	return &App{
		cfg:    config.Default(),
		router: r,
	}
}

// Tune replaces the default config. Zero values are backfilled with
// defaults.
func (a *App) Tune(cfg config.Config) *App {
	a.cfg = config.Fill(cfg)
	return a
}

// NotifyOnStart calls the callback right before the accept loop starts.
func (a *App) NotifyOnStart(cb func()) *App {
	a.hooks.onStart = cb
	return a
}

// NotifyOnStop calls the callback once the listener is down and every
// connection has finished.
func (a *App) NotifyOnStop(cb func()) *App {
	a.hooks.onStop = cb
	return a
}

// BindAndListen binds the address and serves connections until Stop is
// called. An address without a host, e.g. ":8080", binds the wildcard
// interface.
func (a *App) BindAndListen(addr string) error {
	httpServer := serverhttp.NewServer(a.router, a.cfg)
	a.tcp = tcp.New(a.cfg.NET.AcceptLoopInterruptPeriod, httpServer.ServeConn)

	if err := a.tcp.Bind(address.Normalize(addr)); err != nil {
		return fmt.Errorf("httc: listen: %w", err)
	}

	if a.hooks.onStart != nil {
		a.hooks.onStart()
	}

	err := a.tcp.Listen()
	a.tcp.Wait()

	if a.hooks.onStop != nil {
		a.hooks.onStop()
	}

	return err
}

// Stop shuts the listener down and lets alive connections finish. It is
// safe to call from any goroutine once BindAndListen has started.
func (a *App) Stop() {
	a.tcp.Stop()
}
