// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
rxminerd is a CPU proof-of-work miner for a memory-hard hash function that runs
against an in-memory simulated chain.

The miner creates block templates from the chain, derives the seed of the
hash function from the block at the seed height of each template and grinds
the nonce space with a pool of workers.  Workers hash either with a light mode
cache that derives dataset items on demand or with the fast mode dataset which
is computed once per seed and shared by all of them.  Solutions are submitted
back to the chain which verifies their proof of work independently.

The default options are sane for most users.  The long form of all of the
options (except -C) can be specified in a configuration file that is
automatically created and parsed when rxminerd starts up.  By default, the
configuration file is located at ~/.rxminerd/rxminerd.conf on POSIX-style
operating systems and %LOCALAPPDATA%\rxminerd\rxminerd.conf on Windows.  The
-C (--configfile) flag can be used to override this location.

Usage:

	rxminerd [OPTIONS]

Application Options:

	-V, --version           Display version information and exit
	-A, --appdata=          Path to application home directory
	-C, --configfile=       Path to configuration file
	    --logdir=           Directory to log output
	    --nofilelogging     Disable file logging
	-d, --debuglevel=       Logging level for all subsystems {trace, debug,
	                        info, warn, error, critical} -- You may also
	                        specify <subsystem>=<level>,<subsystem2>=<level>,...
	                        to set the log level for individual subsystems --
	                        Use show to list available subsystems (info)
	    --simnet            Use the simulation test network (default)
	    --regnet            Use the regression test network
	    --generate          Generate (mine) coins using the CPU
	    --miningaddr=       Address to pay mined block rewards to -- Required
	                        with generate
	    --minethreads=      Number of mining workers -- 0 uses one per CPU core
	    --fastmode          Hash with the full dataset instead of the light
	                        mode cache
	    --nolightfallback   Do not switch to light mode when the fast mode
	                        dataset can't be allocated
	    --lowpriority       Run mining workers at the lowest scheduling
	                        priority
	    --minpeers=         Minimum number of connected peers required to mine
	                        (1)
	    --templaterefresh=  Maximum age of a block template before a new one is
	                        requested (30s)
	    --pollinterval=     Interval at which the chain tip and refresh
	                        requests are checked (100ms)
	    --minbackoff=       Initial delay when mining is paused or templates
	                        can't be created (1s)
	    --maxbackoff=       Maximum delay when mining is paused or templates
	                        can't be created (64s)
	    --templatetimeout=  Maximum amount of time to wait for a block template
	                        (10s)
	    --statusinterval=   Interval at which the mining status is logged -- 0
	                        to disable (1m)
	    --powtestparams     Hash with keyed BLAKE3 instead of RandomX
	                        (simulation only)
	    --simbits=          Difficulty bits of block templates in hex
	                        (1f00ffff)
	    --simpeerinterval=  Average interval between blocks found by simulated
	                        peers -- 0 to disable
	    --simsyncduration=  Amount of time the simulated chain reports itself
	                        as syncing on startup
	    --simpeers=         Number of simulated connected peers (8)
	    --profile=          Enable HTTP profiling on given [addr:]port -- NOTE
	                        port must be between 1024 and 65535
	    --cpuprofile=       Write CPU profile to the specified file
	    --memprofile=       Write mem profile to the specified file

Help Options:

	-h, --help              Show this help message
*/
package main
