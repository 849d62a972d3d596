// Package logging builds the shared zap logger.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a production JSON logger with ISO8601 timestamps. Pass a dev
// environment name for the human readable console encoder instead.
func New(environment string) (*zap.Logger, error) {
	if environment == "dev" || environment == "development" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}
