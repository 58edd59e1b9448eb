package infrastructure

import (
	"github.com/alessio/shellescape"
)

// ShellEscapeCommand renders a command line for logging.
// exec.Command passes args directly and never needs this.
func ShellEscapeCommand(binary string, args ...string) string {
	return shellescape.QuoteCommand(append([]string{binary}, args...))
}
