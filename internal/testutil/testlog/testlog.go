package testlog

import (
	"testing"

	"github.com/danmuck/lossyudp/internal/logging"
	"github.com/danmuck/lossyudp/internal/logs"
)

func Start(t *testing.T) {
	t.Helper()
	logging.ConfigureTests()
	logs.Infof("test=%s", t.Name())
}
