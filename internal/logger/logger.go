package logger

import (
	"go.uber.org/zap"
)

// New builds the service logger. Production config with console-friendly
// output when debug is set.
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
