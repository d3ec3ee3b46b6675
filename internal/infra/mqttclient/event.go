package mqttclient

import (
	"fmt"
	"time"
)

// EventKind classifies an Event.
type EventKind int

const (
	EventConnAck EventKind = iota + 1
	EventSubAck
	EventPubAck
	EventPublish
	EventPublishFailed
	EventPingReq
	EventPingResp
	EventConnectionLost
)

var eventKindNames = map[EventKind]string{
	EventConnAck:        "ConnAck",
	EventSubAck:         "SubAck",
	EventPubAck:         "PubAck",
	EventPublish:        "Publish",
	EventPublishFailed:  "PublishFailed",
	EventPingReq:        "PingReq",
	EventPingResp:       "PingResp",
	EventConnectionLost: "ConnectionLost",
}

func (k EventKind) String() string {
	if s, ok := eventKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// IsPing reports whether the event belongs to keep-alive traffic.
func (k EventKind) IsPing() bool {
	return k == EventPingReq || k == EventPingResp
}

// Event is one step of an MQTT session.
type Event struct {
	Kind      EventKind
	Topic     string
	Payload   []byte
	QoS       byte
	Retained  bool
	MessageID uint16
	Detail    string
	Err       error
	At        time.Time
}

// String renders the event without its payload.
func (e Event) String() string {
	switch e.Kind {
	case EventPublish:
		return fmt.Sprintf("Publish(topic=%s, qos=%d, retain=%t, pkid=%d, payload=%d bytes)",
			e.Topic, e.QoS, e.Retained, e.MessageID, len(e.Payload))
	case EventPublishFailed, EventConnectionLost:
		return fmt.Sprintf("%s(%v)", e.Kind, e.Err)
	}
	if e.Detail != "" {
		return fmt.Sprintf("%s(%s)", e.Kind, e.Detail)
	}
	return e.Kind.String()
}
