// Package hikvision reads the on-disk index of Hikvision network video
// recorders and extracts recorded segments from the recording files.
package hikvision

import "github.com/sirupsen/logrus"

var logger *logrus.Logger

func init() {
	logger = logrus.New()
}

// SetLogLevel sets the log level for this package.
func SetLogLevel(level logrus.Level) {
	logger.SetLevel(level)
}
