package services

import (
	"io"

	"github.com/sirupsen/logrus"
)

func logrusDiscard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
