package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flags "github.com/jessevdk/go-flags"

	"meshchat/mesh"
)

// meshchatMain is the real main function.  It is necessary to work around
// the fact that deferred functions do not run when os.Exit() is called.
func meshchatMain() error {
	cfg, _, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}
	defer closeLogRotator()

	ctx := shutdownListener()

	nodeCfg := mesh.Config{
		ListenAddr:  cfg.Listen,
		Dial:        newDialer(cfg),
		DialTimeout: cfg.DialTimeout,
	}

	if cfg.Chime {
		player, err := newChimePlayer(cfg.ChimeFile)
		if err != nil {
			return err
		}
		nodeCfg.OnMessage = func(string) { player.Play() }
	}

	var uiSink *channelSink
	nodeCfg.Sink, uiSink = frontendSink(cfg, os.Stdout)

	node := mesh.New(nodeCfg)
	if err := node.Start(ctx); err != nil {
		chatLog.Errorf("Unable to start node: %v", err)
		return err
	}
	defer func() {
		chatLog.Infof("Shutting down...")
		node.Close()
	}()

	if cfg.Plain {
		return runConsole(ctx, node, cfg.Username, cfg.peers, os.Stdin, nodeCfg.Sink)
	}
	return runTUI(ctx, node, cfg, uiSink)
}

func main() {
	if err := meshchatMain(); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// frontendSink returns the sink for display lines and, for the terminal UI,
// the queue it drains.  Either front end owns the terminal from here on, so
// console logging is switched off and the log file keeps the full record.
func frontendSink(cfg *config, stdout io.Writer) (mesh.Sink, *channelSink) {
	consoleLogging.Store(false)
	if cfg.Plain {
		return newConsoleSink(stdout), nil
	}
	s := newChannelSink(256)
	return s, s
}
