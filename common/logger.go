package common

import (
	"nsanalyze/status"
)

// Set to true during development to get info logging on stderr.
const DEBUG = false

// MT: Constant after initialization; thread-safe
var Log status.Logger = status.Default()

func init() {
	if DEBUG {
		Log.SetLevel(status.LogLevelInfo)
	}
}
