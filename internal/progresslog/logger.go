// Copyright (c) 2015-2024 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package progresslog

import (
	"sync"
	"time"

	"github.com/decred/slog"
)

// defaultLogInterval is the minimum amount of time in between progress
// messages unless logging is forced.
const defaultLogInterval = 10 * time.Second

// pickNoun returns the singular or plural form of a noun depending on the
// provided count.
func pickNoun(n uint64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

// Logger provides periodic logging of mining progress such as the number of
// hashes performed and the blocks that were found.
type Logger struct {
	sync.Mutex
	subsystemLogger slog.Logger
	progressAction  string
	interval        time.Duration

	// lastLogTime tracks the last time a log statement was shown.
	lastLogTime time.Time

	// These fields accumulate information between log statements.
	hashes    uint64
	templates uint64
	found     uint64
	stale     uint64
}

// New returns a new mining progress logger.
func New(progressAction string, logger slog.Logger) *Logger {
	return &Logger{
		lastLogTime:     time.Now(),
		progressAction:  progressAction,
		subsystemLogger: logger,
		interval:        defaultLogInterval,
	}
}

// SetInterval sets the minimum amount of time in between progress messages.
func (l *Logger) SetInterval(interval time.Duration) {
	l.Lock()
	l.interval = interval
	l.Unlock()
}

// LogProgress accumulates the provided counts and periodically (every 10
// seconds by default) logs an information message to show progress to the
// user along with the duration and totals included.
//
// The force flag may be used to force a log message to be shown regardless of
// the time the last one was shown.
//
// The progress message is templated as follows:
//
//	{progressAction} {numHashes} {hashes|hash} in the last {timePeriod}
//	({hashRate}, {numTemplates} {templates|template}, {numFound}
//	{blocks|block} found, {numStale} stale, height {height})
func (l *Logger) LogProgress(hashes, templates, found, stale uint64, height int64, forceLog bool) {
	l.Lock()
	defer l.Unlock()

	l.hashes += hashes
	l.templates += templates
	l.found += found
	l.stale += stale
	now := time.Now()
	duration := now.Sub(l.lastLogTime)
	if !forceLog && duration < l.interval {
		return
	}

	var rate float64
	if secs := duration.Seconds(); secs > 0 {
		rate = float64(l.hashes) / secs
	}
	l.subsystemLogger.Infof("%s %d %s in the last %0.2fs (%s, %d %s, %d %s "+
		"found, %d stale, height %d)", l.progressAction, l.hashes,
		pickNoun(l.hashes, "hash", "hashes"), duration.Seconds(),
		FormatHashRate(rate), l.templates,
		pickNoun(l.templates, "template", "templates"), l.found,
		pickNoun(l.found, "block", "blocks"), l.stale, height)

	l.hashes = 0
	l.templates = 0
	l.found = 0
	l.stale = 0
	l.lastLogTime = now
}

// SetLastLogTime updates the last time data was logged to the provided time.
func (l *Logger) SetLastLogTime(time time.Time) {
	l.Lock()
	l.lastLogTime = time
	l.Unlock()
}
