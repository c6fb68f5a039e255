// Copyright (c) 2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/decred/dcrd/chaincfg/v3"
	"github.com/decred/dcrd/txscript/v4/stdaddr"
	"github.com/decred/rxminer/internal/mining"
	"github.com/decred/rxminer/internal/pow"
	"github.com/decred/rxminer/internal/simchain"
	"github.com/decred/rxminer/sampleconfig"
)

// simNetAddr is a simnet pay-to-pubkey-hash address.
const simNetAddr = "Sspzuh5xuvqxccYLWJDJjCtqp166NRxcaPB"

// regNetAddr returns a regnet pay-to-pubkey-hash address.
func regNetAddr(t *testing.T) string {
	t.Helper()

	addr, err := stdaddr.NewAddressPubKeyHashEcdsaSecp256k1V0(
		bytes.Repeat([]byte{0x01}, 20), chaincfg.RegNetParams())
	if err != nil {
		t.Fatalf("unexpected error creating address: %v", err)
	}
	return addr.String()
}

// testArgs returns command line arguments that isolate the configuration from
// the environment by using a temporary home directory and disabling file
// logging.
func testArgs(t *testing.T, extra ...string) []string {
	t.Helper()

	args := []string{"--appdata=" + t.TempDir(), "--nofilelogging"}
	return append(args, extra...)
}

// TestLoadConfigDefaults ensures the default configuration selects simnet
// light mode mining with the standard parameters and creates the default
// config file.
func TestLoadConfigDefaults(t *testing.T) {
	args := testArgs(t)
	cfg, remaining, err := loadConfig("rxminerd", args)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}
	if len(remaining) != 0 {
		t.Fatalf("unexpected remaining args: %v", remaining)
	}

	if cfg.params.Name != chaincfg.SimNetParams().Name {
		t.Fatalf("unexpected network %q", cfg.params.Name)
	}
	if cfg.MineThreads != runtime.NumCPU() || cfg.miningMode != pow.LightMode {
		t.Fatalf("unexpected mining options: %v", spew.Sdump(cfg))
	}
	if *cfg.powParams != *pow.MainParams() {
		t.Fatalf("unexpected pow params: %v", spew.Sdump(cfg.powParams))
	}
	if cfg.simBits != simchain.DefaultBits || cfg.payScript != nil {
		t.Fatalf("unexpected computed options: %v", spew.Sdump(cfg))
	}
	if cfg.TemplateRefresh != mining.DefaultRefreshInterval ||
		cfg.MaxBackoff != mining.DefaultMaxBackoff {

		t.Fatalf("unexpected intervals: %v", spew.Sdump(cfg))
	}
	if filepath.Base(cfg.LogDir) != cfg.params.Name {
		t.Fatalf("log dir %q is not namespaced by network", cfg.LogDir)
	}

	contents, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		t.Fatalf("unable to read default config file: %v", err)
	}
	if string(contents) != sampleconfig.Rxminerd() {
		t.Fatal("default config file does not match the sample config")
	}
}

// TestLoadConfigFile ensures options are read from the config file and that
// command line options take precedence.
func TestLoadConfigFile(t *testing.T) {
	homeDir := t.TempDir()
	configFile := filepath.Join(homeDir, defaultConfigFilename)
	contents := "[Application Options]\nregnet=1\nminethreads=2\n" +
		"fastmode=1\npowtestparams=1\nsimbits=0x207fffff\nminpeers=3\n" +
		"generate=1\nminingaddr=" + regNetAddr(t) + "\n"
	if err := os.WriteFile(configFile, []byte(contents), 0600); err != nil {
		t.Fatalf("unable to write config file: %v", err)
	}

	args := []string{"--appdata=" + homeDir, "--nofilelogging",
		"--minethreads=1", "--minbackoff=2s"}
	cfg, _, err := loadConfig("rxminerd", args)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}
	if cfg.params.Name != chaincfg.RegNetParams().Name {
		t.Fatalf("unexpected network %q", cfg.params.Name)
	}
	if cfg.MineThreads != 1 || cfg.miningMode != pow.FastMode ||
		cfg.MinPeers != 3 || cfg.MinBackoff.Seconds() != 2 {

		t.Fatalf("unexpected mining options: %v", spew.Sdump(cfg))
	}
	if *cfg.powParams != *pow.TestParams() || cfg.simBits != 0x207fffff {
		t.Fatalf("unexpected computed options: %v", spew.Sdump(cfg))
	}
	if !cfg.Generate || len(cfg.payScript) == 0 {
		t.Fatalf("unexpected payout options: %v", spew.Sdump(cfg))
	}
}

// TestLoadConfigMiningAddr ensures the mining address is converted to the
// script that pays to it.
func TestLoadConfigMiningAddr(t *testing.T) {
	args := testArgs(t, "--generate", "--miningaddr="+simNetAddr)
	cfg, _, err := loadConfig("rxminerd", args)
	if err != nil {
		t.Fatalf("unexpected error loading config: %v", err)
	}

	addr, err := stdaddr.DecodeAddress(simNetAddr, chaincfg.SimNetParams())
	if err != nil {
		t.Fatalf("unexpected error decoding address: %v", err)
	}
	_, wantScript := addr.PaymentScript()
	if !bytes.Equal(cfg.payScript, wantScript) {
		t.Fatalf("unexpected pay script -- got %x, want %x", cfg.payScript,
			wantScript)
	}
}

// TestLoadConfigErrors ensures invalid options are rejected.
func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{{
		name: "multiple networks",
		args: []string{"--simnet", "--regnet"},
	}, {
		name: "generate without address",
		args: []string{"--generate"},
	}, {
		name: "malformed address",
		args: []string{"--miningaddr=invalid"},
	}, {
		name: "address for other network",
		args: []string{"--regnet", "--miningaddr=" + simNetAddr},
	}, {
		name: "negative workers",
		args: []string{"--minethreads=-1"},
	}, {
		name: "too many workers",
		args: []string{"--minethreads=100000"},
	}, {
		name: "negative min peers",
		args: []string{"--minpeers=-1"},
	}, {
		name: "inverted backoff",
		args: []string{"--minbackoff=10s", "--maxbackoff=1s"},
	}, {
		name: "zero poll interval",
		args: []string{"--pollinterval=0s"},
	}, {
		name: "negative status interval",
		args: []string{"--statusinterval=-1s"},
	}, {
		name: "malformed bits",
		args: []string{"--simbits=zz"},
	}, {
		name: "zero bits",
		args: []string{"--simbits=0"},
	}, {
		name: "invalid debug level",
		args: []string{"--debuglevel=verbose"},
	}, {
		name: "privileged profile port",
		args: []string{"--profile=80"},
	}, {
		name: "unknown option",
		args: []string{"--nosuchoption"},
	}}

	for _, test := range tests {
		args := testArgs(t, test.args...)
		if _, _, err := loadConfig("rxminerd", args); err == nil {
			t.Errorf("%s: did not receive expected error", test.name)
		}
	}
	setLogLevels(defaultLogLevel)
}

// TestParseAndSetDebugLevels ensures debug levels are parsed for all or a
// subset of subsystems.
func TestParseAndSetDebugLevels(t *testing.T) {
	defer setLogLevels(defaultLogLevel)

	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "global", level: "debug"},
		{name: "subsystems", level: "MINR=trace,POWH=warn"},
		{name: "invalid level", level: "loud", wantErr: true},
		{name: "invalid pair", level: "MINR=debug,info", wantErr: true},
		{name: "invalid subsystem", level: "NOPE=debug", wantErr: true},
		{name: "invalid subsystem level", level: "MINR=loud", wantErr: true},
	}
	for _, test := range tests {
		err := parseAndSetDebugLevels(test.level)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: unexpected error result -- got %v, want error %v",
				test.name, err, test.wantErr)
		}
	}

	want := []string{"MINR", "POWH", "RXMD", "SIMC"}
	if got := supportedSubsystems(); strings.Join(got, ",") !=
		strings.Join(want, ",") {

		t.Fatalf("unexpected subsystems -- got %v, want %v", got, want)
	}
}

// TestCleanAndExpandPath ensures environment variables and the home directory
// are expanded.
func TestCleanAndExpandPath(t *testing.T) {
	t.Setenv("RXMINERD_TEST_DIR", "/tmp/rxminerd")
	if got := cleanAndExpandPath("$RXMINERD_TEST_DIR/logs/../data"); got !=
		filepath.Clean("/tmp/rxminerd/data") {

		t.Fatalf("unexpected path %q", got)
	}
	if got := cleanAndExpandPath(""); got != "" {
		t.Fatalf("unexpected path for empty input %q", got)
	}
	if got := cleanAndExpandPath("~/x"); strings.HasPrefix(got, "~") {
		t.Fatalf("home directory not expanded in %q", got)
	}
}
