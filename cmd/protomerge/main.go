package main

import (
	"errors"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/protomerge/pkg/cli"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := cli.Execute(); err != nil {
		// --fail-on-incompatible exits 2, every other failure exits 1
		if errors.Is(err, cli.ErrIncompatible) {
			logger.Warn(err.Error())
			os.Exit(2)
		}
		logger.WithError(err).Error("protomerge failed")
		os.Exit(1)
	}
}
