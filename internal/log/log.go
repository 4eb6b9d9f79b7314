// Package log provides the single process-wide structured logger used
// by every stage and by main. It is initialized once at startup and
// never reconfigured mid-run; none of the core's contracts depend on
// it being present, so tests construct stages without touching it.
package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

var base = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init configures the package-wide logger's verbosity. Call once from
// main before any stage runs.
func Init(debug bool) {
	if debug {
		base.SetLevel(logrus.DebugLevel)
	}
}

// Stage returns a logger pre-tagged with the stage name and device id,
// matching the fields every pipeline stage logs on entry, exit and
// error.
func Stage(name string, device int) *logrus.Entry {
	return base.WithFields(logrus.Fields{"stage": name, "device": device})
}

// Fatal logs at fatal severity and exits the process, mirroring
// BOOST_LOG_TRIVIAL(fatal) in the prototype this core replaces.
func Fatal(args ...interface{}) {
	base.Fatal(args...)
}

// Base exposes the root logger for components that need their own
// field set (the planner, the CLI).
func Base() *logrus.Logger { return base }
