// Package main is the entry point for the NimbleTools control plane API.
package main

import (
	"os"

	"github.com/spf13/viper"

	"github.com/NimbleBrainInc/nimbletools-core/cmd/ntc-api/app"
	"github.com/NimbleBrainInc/nimbletools-core/pkg/logger"
)

func main() {
	viper.MustBindEnv("log-level", "NTC_LOG_LEVEL")
	logger.Initialize()

	if err := app.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
