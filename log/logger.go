// Package log is a leveled logger on top of the standard log package.
//
// The level is part of the message: log.Printf("[warn] unknown tag %q", k).
// Lines below the minimal level are dropped, all other lines are prefixed
// with the current time and the time elapsed since the start.
package log

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sync"
	"time"
)

var DefaultLogger *log.Logger
var defaultFilter *logFilter

type Level string

const (
	LDebug    = Level("debug")
	LProgress = Level("progress")
	LStep     = Level("step")
	LInfo     = Level("info")
	LWarn     = Level("warn")
	LError    = Level("error")
	LFatal    = Level("fatal")
)

var levels = []Level{LDebug, LProgress, LStep, LInfo, LWarn, LError, LFatal}

func init() {
	defaultFilter = &logFilter{
		start:    time.Now(),
		writer:   os.Stderr,
		minLevel: LProgress,
	}
	defaultFilter.init()
	DefaultLogger = log.New(defaultFilter, "", 0)
}

type logFilter struct {
	mu        sync.Mutex
	start     time.Time
	writer    io.Writer
	badLevels map[Level]struct{}
	minLevel  Level
}

func (f *logFilter) init() {
	badLevels := make(map[Level]struct{})
	for _, level := range levels {
		if level == f.minLevel {
			break
		}
		badLevels[level] = struct{}{}
	}
	f.badLevels = badLevels
}

// level returns the [level] of a line, or "" for lines without level.
func level(line []byte) Level {
	x := bytes.IndexByte(line, '[')
	if x < 0 {
		return ""
	}
	y := bytes.IndexByte(line[x:], ']')
	if y < 0 {
		return ""
	}
	return Level(line[x+1 : x+y])
}

func (f *logFilter) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, bad := f.badLevels[level(p)]; bad {
		return len(p), nil
	}

	b := bytes.Buffer{}
	now := time.Now()
	d := now.Sub(f.start)
	fmt.Fprintf(&b, "[%s] %d:%02d:%02d ",
		now.Format(time.RFC3339),
		int(d.Hours()),
		int(math.Mod(d.Minutes(), 60)),
		int(math.Mod(d.Seconds(), 60)),
	)
	b.Write(p)
	if _, err := f.writer.Write(b.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}

func SetMinLevel(lvl Level) {
	defaultFilter.mu.Lock()
	defer defaultFilter.mu.Unlock()
	defaultFilter.minLevel = lvl
	defaultFilter.init()
}

// SetOutput redirects all log output to w.
func SetOutput(w io.Writer) {
	defaultFilter.mu.Lock()
	defer defaultFilter.mu.Unlock()
	defaultFilter.writer = w
}

func Println(v ...interface{}) {
	DefaultLogger.Println(v...)
}

func Printf(format string, v ...interface{}) {
	DefaultLogger.Printf(format, v...)
}

func Fatal(v ...interface{}) {
	DefaultLogger.Fatal(v...)
}

func Fatalf(format string, v ...interface{}) {
	DefaultLogger.Fatalf(format, v...)
}

// Step logs the start of name and returns a func that logs its end with the
// elapsed time.
func Step(name string) func() {
	start := time.Now()
	Println("[step] Starting:", name)
	return func() {
		Printf("[step] Finished: %s in %s", name, time.Since(start))
	}
}
