package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/j-stephan/ddafa/internal/log"
)

// RecoverFatal is deferred once at the top of main. It mirrors the
// prototype's signal_handler (original_source/src/main.cpp): on an
// unrecovered panic it logs the failure and a stack trace at fatal
// level and exits non-zero (logrus.Fatal calls os.Exit(1) itself),
// rather than letting the Go runtime print its own crash dump.
func RecoverFatal() {
	if r := recover(); r != nil {
		log.Base().WithField("stack", string(debug.Stack())).Fatal(fmt.Sprint(r))
	}
}
