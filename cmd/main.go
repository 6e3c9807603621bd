package main

import (
	"os"

	"memberledger/internal/cli"
	"memberledger/internal/util/logger"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		logger.GetLogger().Error("Command failed", "error", err)
		os.Exit(1)
	}
}
