/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	configPath := flag.String("config", "prism.toml", "path to the engine configuration")
	flag.Parse()

	cfg, err := engine.NewApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("%s", err)
	}
	tb := testbed.NewTestGame(cfg)

	engine, err := engine.New(tb.Game)
	if err != nil {
		core.LogFatal("%s", err)
	}

	if err := engine.Initialize(); err != nil {
		_ = engine.Shutdown()
		core.LogFatal("%s", err)
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	go func() {
		// capture sigterm and other system call here
		<-sigCh
		engine.Stop()
	}()

	// run engine
	runErr := engine.Run()
	if err := engine.Shutdown(); err != nil {
		core.LogError("%s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
