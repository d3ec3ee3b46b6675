package service

import (
	"fmt"
	"strings"

	"github.com/yndnr/dsh-go/internal/infra/mqttclient"
)

// render prints one received event.
//
//	concise: "<topic> > <payload>" for messages, nothing else
//	default: "Event: ..." for every event except pings, plus the decoded payload
//	verbose: pings too
func (s *Session) render(ev mqttclient.Event) {
	switch {
	case ev.Kind == mqttclient.EventPublish:
		s.metrics.MQTTMessages.WithLabelValues("in").Inc()
		payload := strings.ToValidUTF8(string(ev.Payload), "�")
		if s.opts.Concise {
			fmt.Fprintf(s.out, "%s > %s\n", ev.Topic, payload)
			return
		}
		fmt.Fprintf(s.out, "Event: %s\n", ev)
		fmt.Fprintf(s.out, "Decoded message: %s\n", payload)
	case ev.Kind.IsPing():
		if s.opts.Verbose {
			fmt.Fprintf(s.out, "Event: %s\n", ev)
		}
	default:
		if !s.opts.Concise {
			fmt.Fprintf(s.out, "Event: %s\n", ev)
		}
	}
}
