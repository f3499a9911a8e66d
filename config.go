package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/slog"
	flags "github.com/jessevdk/go-flags"

	"meshchat/mesh"
)

const (
	defaultConfigFilename = "meshchat.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "meshchat.log"
	defaultListen         = "127.0.0.1:6787"
	defaultDialTimeout    = 5 * time.Second
	defaultLogLevel       = "info"
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("meshchat", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// config defines the configuration options for meshchat.
type config struct {
	ConfigFile  string        `short:"C" long:"configfile" description:"Path to configuration file"`
	Listen      string        `short:"l" long:"listen" description:"Local host:port to accept peer connections on"`
	Peers       []string      `short:"p" long:"peer" description:"Peer host:port to connect to; may be specified multiple times"`
	Username    string        `short:"u" long:"username" description:"Display name prefixed to sent messages"`
	Proxy       string        `long:"proxy" description:"Connect to peers via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser   string        `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass   string        `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	DialTimeout time.Duration `long:"dialtimeout" description:"How long to wait for an outbound connection"`
	Plain       bool          `long:"plain" description:"Use a line-oriented console instead of the terminal UI"`
	Chime       bool          `long:"chime" description:"Play a sound when a message arrives"`
	ChimeFile   string        `long:"chimefile" description:"WAV or MP3 file to play instead of the built-in chime"`
	LogDir      string        `long:"logdir" description:"Directory to log output"`
	DebugLevel  string        `short:"d" long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical, off}"`

	peers []mesh.PeerAddress
}

func defaultConfig() config {
	return config{
		ConfigFile:  defaultConfigFile,
		Listen:      defaultListen,
		DialTimeout: defaultDialTimeout,
		LogDir:      defaultLogDir,
		DebugLevel:  defaultLogLevel,
	}
}

// cleanAndExpandPath expands a leading ~ and cleans the result.
func cleanAndExpandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		path = strings.Replace(path, "~", home, 1)
	}
	return filepath.Clean(os.ExpandEnv(path))
}

// loadConfig initializes and parses the config using a config file and
// command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in meshchat functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig(args []string) (*config, []string, error) {
	cfg := defaultConfig()

	preCfg := cfg
	preParser := flags.NewParser(&preCfg, flags.HelpFlag)
	if _, err := preParser.ParseArgs(args); err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
		}
		return nil, nil, err
	}

	parser := flags.NewParser(&cfg, flags.HelpFlag)
	configFile := cleanAndExpandPath(preCfg.ConfigFile)
	err := flags.NewIniParser(parser).ParseFile(configFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("error parsing config file %s: %w", configFile, err)
	}

	remaining, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	if err := initLogRotator(filepath.Join(cfg.LogDir, defaultLogFilename)); err != nil {
		return nil, nil, err
	}
	setLogLevels(cfg.DebugLevel)

	return &cfg, remaining, nil
}

// validate checks option values and resolves the peer list.
func (cfg *config) validate() error {
	if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
		return fmt.Errorf("invalid listen address %q: %w", cfg.Listen, err)
	}

	if _, ok := slog.LevelFromString(cfg.DebugLevel); !ok {
		return fmt.Errorf("invalid debug level %q", cfg.DebugLevel)
	}

	if cfg.DialTimeout <= 0 {
		return fmt.Errorf("dialtimeout must be positive, got %v", cfg.DialTimeout)
	}

	if cfg.Proxy != "" {
		if _, _, err := net.SplitHostPort(cfg.Proxy); err != nil {
			return fmt.Errorf("invalid proxy address %q: %w", cfg.Proxy, err)
		}
	}

	cfg.Username = strings.TrimSpace(cfg.Username)
	if cfg.Plain && cfg.Username == "" {
		return errors.New("--username is required with --plain")
	}

	if cfg.ChimeFile != "" {
		cfg.ChimeFile = cleanAndExpandPath(cfg.ChimeFile)
		cfg.Chime = true
	}

	cfg.peers = cfg.peers[:0]
	seen := make(map[mesh.PeerAddress]struct{}, len(cfg.Peers))
	for _, p := range cfg.Peers {
		addr, err := mesh.ParsePeerAddress(p)
		if err != nil {
			return fmt.Errorf("invalid peer %q: %w", p, err)
		}
		if _, dup := seen[addr]; dup {
			continue
		}
		seen[addr] = struct{}{}
		cfg.peers = append(cfg.peers, addr)
	}
	return nil
}
