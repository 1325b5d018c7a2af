package result

import (
	logpkg "github.com/echa/log"
)

var log logpkg.Logger

func init() {
	DisableLog()
}

func DisableLog() {
	log = logpkg.Disabled
}

func UseLogger(logger logpkg.Logger) {
	log = logger
}
