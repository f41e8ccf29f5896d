package logger

import "sync"

var components sync.Map // name -> *Logger

// DefaultComponents are the loggers RegisterDefaults creates.
var DefaultComponents = []string{"flow", "checkpoint", "source", "sink", "storage", "database", "trigger"}

// Register installs l as the logger for the named component, replacing any
// earlier one.
func Register(name string, l *Logger) {
	components.Store(name, l)
}

// Get returns the logger registered for name. Unregistered names get the
// global logger tagged with the component name; that logger is not cached,
// so a later Init is still picked up.
func Get(name string) *Logger {
	if l, ok := components.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives the engine's component loggers from the global
// logger. Call it after Init; names defaults to DefaultComponents.
func RegisterDefaults(names ...string) {
	if len(names) == 0 {
		names = DefaultComponents
	}
	global := GetGlobalLogger()
	for _, name := range names {
		Register(name, global.WithComponent(name))
	}
}
