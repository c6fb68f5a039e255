// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/rxminer/internal/mining"
	"github.com/decred/rxminer/internal/pow"
	"github.com/decred/rxminer/internal/simchain"
	"github.com/decred/rxminer/internal/version"
	"github.com/decred/rxminer/sampleconfig"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultConfigFilename = "rxminerd.conf"
	defaultLogDirname     = "logs"
	defaultLogFilename    = "rxminerd.log"
	defaultLogLevel       = "info"
	defaultMaxLogRolls    = 8
	defaultMinPeers       = 1
	defaultStatusInterval = time.Minute
	defaultSimPeers       = 8
)

var (
	defaultHomeDir    = dcrutil.AppDataDir("rxminerd", false)
	defaultConfigFile = filepath.Join(defaultHomeDir, defaultConfigFilename)
	defaultLogDir     = filepath.Join(defaultHomeDir, defaultLogDirname)
)

// errSuppressUsage signifies that an error that happened during the initial
// configuration phase should suppress the usage output since it was not caused
// by the user.
type errSuppressUsage string

// Error implements the error interface.
func (e errSuppressUsage) Error() string {
	return string(e)
}

// config defines the configuration options for rxminerd.
//
// See loadConfig for details on the configuration load process.
type config struct {
	// General application behavior.
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	HomeDir       string `short:"A" long:"appdata" description:"Path to application home directory" env:"RXMINERD_APPDATA"`
	ConfigFile    string `short:"C" long:"configfile" description:"Path to configuration file"`
	LogDir        string `long:"logdir" description:"Directory to log output"`
	NoFileLogging bool   `long:"nofilelogging" description:"Disable file logging"`
	DebugLevel    string `short:"d" long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems -- Use show to list available subsystems"`

	// Network.
	SimNet bool `long:"simnet" description:"Use the simulation test network (default)"`
	RegNet bool `long:"regnet" description:"Use the regression test network"`

	// Mining.
	Generate        bool          `long:"generate" description:"Generate (mine) coins using the CPU"`
	MiningAddr      string        `long:"miningaddr" description:"Address to pay mined block rewards to -- Required with generate"`
	MineThreads     int           `long:"minethreads" description:"Number of mining workers -- 0 uses one per CPU core"`
	FastMode        bool          `long:"fastmode" description:"Hash with the full dataset instead of the light mode cache"`
	NoLightFallback bool          `long:"nolightfallback" description:"Do not switch to light mode when the fast mode dataset can't be allocated"`
	LowPriority     bool          `long:"lowpriority" description:"Run mining workers at the lowest scheduling priority"`
	MinPeers        int32         `long:"minpeers" description:"Minimum number of connected peers required to mine"`
	TemplateRefresh time.Duration `long:"templaterefresh" description:"Maximum age of a block template before a new one is requested"`
	PollInterval    time.Duration `long:"pollinterval" description:"Interval at which the chain tip and refresh requests are checked"`
	MinBackoff      time.Duration `long:"minbackoff" description:"Initial delay when mining is paused or templates can't be created"`
	MaxBackoff      time.Duration `long:"maxbackoff" description:"Maximum delay when mining is paused or templates can't be created"`
	TemplateTimeout time.Duration `long:"templatetimeout" description:"Maximum amount of time to wait for a block template"`
	StatusInterval  time.Duration `long:"statusinterval" description:"Interval at which the mining status is logged -- 0 to disable"`
	PowTestParams   bool          `long:"powtestparams" description:"Hash with keyed BLAKE3 instead of RandomX (simulation only)"`

	// Simulated chain.
	SimBits         string        `long:"simbits" description:"Difficulty bits of block templates in hex"`
	SimPeerInterval time.Duration `long:"simpeerinterval" description:"Average interval between blocks found by simulated peers -- 0 to disable"`
	SimSyncDuration time.Duration `long:"simsyncduration" description:"Amount of time the simulated chain reports itself as syncing on startup"`
	SimPeers        int32         `long:"simpeers" description:"Number of simulated connected peers"`

	// Profiling options.
	Profile    string `long:"profile" description:"Enable HTTP profiling on given [addr:]port -- NOTE port must be between 1024 and 65535"`
	CPUProfile string `long:"cpuprofile" description:"Write CPU profile to the specified file"`
	MemProfile string `long:"memprofile" description:"Write mem profile to the specified file"`

	// The following fields are all computed from the above options.
	params     *chaincfg.Params
	powParams  *pow.Params
	payScript  []byte
	simBits    uint32
	miningMode pow.Mode
}

// cleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
func cleanAndExpandPath(path string) string {
	// Nothing to do when no path is given.
	if path == "" {
		return path
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows cmd.exe-style
	// %VARIABLE%, but the variables can still be expanded via POSIX-style
	// $VARIABLE.
	path = os.ExpandEnv(path)

	if !strings.HasPrefix(path, "~") {
		return filepath.Clean(path)
	}

	// Expand initial ~ to the current user's home directory, or ~otheruser to
	// otheruser's home directory.  On Windows, both forward and backward
	// slashes can be used.
	path = path[1:]

	var pathSeparators string
	if runtime.GOOS == "windows" {
		pathSeparators = string(os.PathSeparator) + "/"
	} else {
		pathSeparators = string(os.PathSeparator)
	}

	userName := ""
	if i := strings.IndexAny(path, pathSeparators); i != -1 {
		userName = path[:i]
		path = path[i:]
	}

	homeDir := ""
	var u *user.User
	var err error
	if userName == "" {
		u, err = user.Current()
	} else {
		u, err = user.Lookup(userName)
	}
	if err == nil {
		homeDir = u.HomeDir
	}
	// Fallback to CWD if user lookup fails or user has no home directory.
	if homeDir == "" {
		homeDir = "."
	}

	return filepath.Join(homeDir, path)
}

// newConfigParser returns a new command line flags parser.
func newConfigParser(cfg *config, options flags.Options) *flags.Parser {
	return flags.NewParser(cfg, options)
}

// createDefaultConfigFile creates a config file at the provided path using the
// sample config.  The parent directory is created as needed.
func createDefaultConfigFile(destPath string) error {
	// Create the destination directory if it does not exist.
	err := os.MkdirAll(filepath.Dir(destPath), 0700)
	if err != nil {
		return err
	}

	return os.WriteFile(destPath, []byte(sampleconfig.Rxminerd()), 0600)
}

// paymentScript decodes the provided address for the network and returns the
// script that pays to it.  Only scripts of version zero are supported since
// coinbase outputs are always created with that version.
func paymentScript(addr string, params *chaincfg.Params) ([]byte, error) {
	decoded, err := stdaddr.DecodeAddress(addr, params)
	if err != nil {
		return nil, fmt.Errorf("mining address %q failed to decode: %w", addr,
			err)
	}
	scriptVersion, script := decoded.PaymentScript()
	if scriptVersion != 0 {
		return nil, fmt.Errorf("mining address %q requires unsupported "+
			"script version %d", addr, scriptVersion)
	}
	return script, nil
}

// loadConfig initializes and parses the config using a config file and the
// provided command line options.
//
// The configuration proceeds as follows:
//  1. Start with a default config with sane settings
//  2. Pre-parse the command line to check for an alternative config file
//  3. Load configuration file overwriting defaults with any specified options
//  4. Parse CLI options and overwrite/add any specified options
//
// The above results in rxminerd functioning properly without any config
// settings while still allowing the user to override settings with config
// files and command line options.  Command line options always take
// precedence.
func loadConfig(appName string, args []string) (*config, []string, error) {
	// Default config.
	cfg := config{
		HomeDir:         defaultHomeDir,
		ConfigFile:      defaultConfigFile,
		LogDir:          defaultLogDir,
		DebugLevel:      defaultLogLevel,
		MinPeers:        defaultMinPeers,
		TemplateRefresh: mining.DefaultRefreshInterval,
		PollInterval:    mining.DefaultPollInterval,
		MinBackoff:      mining.DefaultMinBackoff,
		MaxBackoff:      mining.DefaultMaxBackoff,
		TemplateTimeout: mining.DefaultTemplateTimeout,
		StatusInterval:  defaultStatusInterval,
		SimBits:         strconv.FormatUint(simchain.DefaultBits, 16),
		SimPeers:        defaultSimPeers,
	}

	// Pre-parse the command line options to see if an alternative config
	// file or the version flag was specified.  Any errors aside from the
	// help message error can be ignored here since they will be caught by
	// the final parse below.
	preCfg := cfg
	preParser := newConfigParser(&preCfg, flags.HelpFlag)
	_, err := preParser.ParseArgs(args)
	if err != nil {
		var e *flags.Error
		if errors.As(err, &e) && e.Type == flags.ErrHelp {
			fmt.Fprintln(os.Stdout, err)
			os.Exit(0)
		}
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version.String(), runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// Update the home directory for rxminerd if specified.  Since the home
	// directory is updated, other variables need to be updated to reflect the
	// new changes.
	if preCfg.HomeDir != "" {
		cfg.HomeDir, _ = filepath.Abs(cleanAndExpandPath(preCfg.HomeDir))

		if preCfg.ConfigFile == defaultConfigFile {
			cfg.ConfigFile = filepath.Join(cfg.HomeDir, defaultConfigFilename)
		} else {
			cfg.ConfigFile = cleanAndExpandPath(preCfg.ConfigFile)
		}
		if preCfg.LogDir == defaultLogDir {
			cfg.LogDir = filepath.Join(cfg.HomeDir, defaultLogDirname)
		} else {
			cfg.LogDir = preCfg.LogDir
		}
	}

	// Create a default config file when one does not exist and the user did
	// not specify an override.
	if preCfg.ConfigFile == defaultConfigFile {
		if _, err := os.Stat(cfg.ConfigFile); os.IsNotExist(err) {
			err := createDefaultConfigFile(cfg.ConfigFile)
			if err != nil {
				str := fmt.Sprintf("failed to create default config file "+
					"%s: %v", cfg.ConfigFile, err)
				return nil, nil, errSuppressUsage(str)
			}
		}
	}

	// Load additional config from file.
	parser := newConfigParser(&cfg, flags.Default)
	err = flags.NewIniParser(parser).ParseFile(cfg.ConfigFile)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return nil, nil, fmt.Errorf("error parsing config file: %w", err)
		}
		if preCfg.ConfigFile != defaultConfigFile {
			return nil, nil, fmt.Errorf("unable to read config file: %w", err)
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	// Multiple networks can't be selected simultaneously.
	if cfg.SimNet && cfg.RegNet {
		str := "%s: the simnet and regnet params can't be used together -- " +
			"choose one of the two"
		return nil, nil, fmt.Errorf(str, appName)
	}
	cfg.params = chaincfg.SimNetParams()
	if cfg.RegNet {
		cfg.params = chaincfg.RegNetParams()
	}

	// Special show command to list supported subsystems and exit.
	if cfg.DebugLevel == "show" {
		fmt.Println("Supported subsystems", supportedSubsystems())
		os.Exit(0)
	}

	// Parse, validate, and set debug log level(s).
	if err := parseAndSetDebugLevels(cfg.DebugLevel); err != nil {
		return nil, nil, fmt.Errorf("%s: %w", appName, err)
	}

	// Append the network type to the log directory so it is "namespaced" per
	// network.
	cfg.LogDir = cleanAndExpandPath(cfg.LogDir)
	cfg.LogDir = filepath.Join(cfg.LogDir, cfg.params.Name)

	// Initialize log rotation.  After log rotation has been initialized, the
	// logger variables may be used.
	if !cfg.NoFileLogging {
		logFile := filepath.Join(cfg.LogDir, defaultLogFilename)
		if err := initLogRotator(logFile, defaultMaxLogRolls); err != nil {
			return nil, nil, errSuppressUsage(err.Error())
		}
	}

	// Validate the mining options.
	switch {
	case cfg.MineThreads < 0:
		str := "%s: the minethreads option may not be negative -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, appName, cfg.MineThreads)

	case cfg.MinPeers < 0:
		str := "%s: the minpeers option may not be negative -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, appName, cfg.MinPeers)

	case cfg.MinBackoff <= 0 || cfg.MaxBackoff < cfg.MinBackoff:
		str := "%s: the backoff options must satisfy 0 < minbackoff <= " +
			"maxbackoff -- parsed [%v, %v]"
		return nil, nil, fmt.Errorf(str, appName, cfg.MinBackoff,
			cfg.MaxBackoff)

	case cfg.TemplateRefresh <= 0 || cfg.PollInterval <= 0 ||
		cfg.TemplateTimeout <= 0:

		str := "%s: the templaterefresh, pollinterval, and templatetimeout " +
			"options must be positive"
		return nil, nil, fmt.Errorf(str, appName)

	case cfg.StatusInterval < 0 || cfg.SimPeerInterval < 0 ||
		cfg.SimSyncDuration < 0 || cfg.SimPeers < 0:

		str := "%s: the statusinterval, simpeerinterval, simsyncduration, " +
			"and simpeers options may not be negative"
		return nil, nil, fmt.Errorf(str, appName)
	}
	if cfg.MineThreads == 0 {
		cfg.MineThreads = runtime.NumCPU()
	}
	if cfg.MineThreads > mining.MaxNumWorkers {
		str := "%s: the minethreads option may not exceed %d -- parsed [%d]"
		return nil, nil, fmt.Errorf(str, appName, mining.MaxNumWorkers,
			cfg.MineThreads)
	}

	bits, err := strconv.ParseUint(strings.TrimPrefix(cfg.SimBits, "0x"), 16, 32)
	if err != nil || bits == 0 {
		str := "%s: the simbits option must be a non-zero 32-bit hex " +
			"value -- parsed [%s]"
		return nil, nil, fmt.Errorf(str, appName, cfg.SimBits)
	}
	cfg.simBits = uint32(bits)

	cfg.miningMode = pow.LightMode
	if cfg.FastMode {
		cfg.miningMode = pow.FastMode
	}
	cfg.powParams = pow.MainParams()
	if cfg.PowTestParams {
		cfg.powParams = pow.TestParams()
	}

	// Mining requires a payment address for the selected network.
	if cfg.MiningAddr != "" {
		cfg.payScript, err = paymentScript(cfg.MiningAddr, cfg.params)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", appName, err)
		}
	}
	if cfg.Generate && cfg.payScript == nil {
		str := "%s: the generate flag requires a mining address to be " +
			"specified with the miningaddr option"
		return nil, nil, fmt.Errorf(str, appName)
	}

	// Validate the profile server address.
	if cfg.Profile != "" {
		cfg.Profile = portToLocalHostAddr(cfg.Profile)
		if err := validateProfileAddr(cfg.Profile); err != nil {
			return nil, nil, fmt.Errorf("%s: invalid profile address: %w",
				appName, err)
		}
	}

	return &cfg, remainingArgs, nil
}
