// Package log provides the module-scoped logging facade used across
// dex-proxy. Every package obtains its own Logger by name, mirroring the
// one-logger-per-module convention the rest of this codebase's lineage
// uses, but backed by zerolog's structured JSON writer instead of a
// bespoke terminal formatter.
package log

import (
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Well-known module names, kept centralised so log aggregation queries can
// filter on a small, stable vocabulary.
const (
	GasPool     = "gaspool"
	AccountPool = "accountpool"
	Executor    = "executor"
	OrderCache  = "ordercache"
	EventSub    = "eventsub"
	RPCPool     = "rpcpool"
	HTTPAPI     = "httpapi"
	Config      = "config"
	Main        = "main"
)

var (
	base zerolog.Logger

	mu      sync.Mutex
	modules = map[string]Logger{}
)

func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
}

// SetLevel adjusts the global minimum log level, e.g. from the -log-level flag.
func SetLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Logger is the narrow interface every dex-proxy package logs through.
type Logger interface {
	Trace(msg string, kv ...interface{})
	Debug(msg string, kv ...interface{})
	Info(msg string, kv ...interface{})
	Warn(msg string, kv ...interface{})
	Error(msg string, kv ...interface{})
	Crit(msg string, kv ...interface{})
}

type moduleLogger struct {
	module string
}

// NewModuleLogger returns (and caches) the Logger for a given module name.
func NewModuleLogger(module string) Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := modules[module]; ok {
		return l
	}
	l := &moduleLogger{module: module}
	modules[module] = l
	return l
}

func (l *moduleLogger) event(e *zerolog.Event, msg string, kv []interface{}) {
	e = e.Str("module", l.module)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		e = e.Interface(key, kv[i+1])
	}
	e.Msg(msg)
}

func (l *moduleLogger) Trace(msg string, kv ...interface{}) { l.event(base.Trace(), msg, kv) }
func (l *moduleLogger) Debug(msg string, kv ...interface{}) { l.event(base.Debug(), msg, kv) }
func (l *moduleLogger) Info(msg string, kv ...interface{})  { l.event(base.Info(), msg, kv) }
func (l *moduleLogger) Warn(msg string, kv ...interface{})  { l.event(base.Warn(), msg, kv) }
func (l *moduleLogger) Error(msg string, kv ...interface{}) { l.event(base.Error(), msg, kv) }
func (l *moduleLogger) Crit(msg string, kv ...interface{})  { l.event(base.Fatal(), msg, kv) }
