package mqttclient

import (
	"fmt"
	"strings"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Paho does not surface keep-alive packets through its API. It does log
// them on its DEBUG logger, so the adapter installs a logger that only
// recognises the two keep-alive lines.
type pingLogger struct {
	emit func(EventKind)
}

var _ pahomqtt.Logger = pingLogger{}

func (l pingLogger) Println(v ...interface{}) {
	l.match(fmt.Sprint(v...))
}

func (l pingLogger) Printf(format string, v ...interface{}) {
	l.match(fmt.Sprintf(format, v...))
}

func (l pingLogger) match(line string) {
	switch {
	case strings.Contains(line, "sending ping"):
		l.emit(EventPingReq)
	case strings.Contains(line, "pingresp"):
		l.emit(EventPingResp)
	}
}

var debugMu sync.Mutex

// installPingLogger replaces paho's process-wide DEBUG logger and returns
// a function restoring the previous one.
func installPingLogger(emit func(EventKind)) (restore func()) {
	debugMu.Lock()
	defer debugMu.Unlock()

	prev := pahomqtt.DEBUG
	pahomqtt.DEBUG = pingLogger{emit: emit}
	return func() {
		debugMu.Lock()
		pahomqtt.DEBUG = prev
		debugMu.Unlock()
	}
}
