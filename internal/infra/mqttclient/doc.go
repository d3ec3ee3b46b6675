// Package mqttclient adapts paho.mqtt.golang to the session engine.
//
// Paho reports progress through callbacks and tokens. The adapter turns
// them into a single ordered stream of Events (connection acknowledgements,
// subscription acknowledgements, publish acknowledgements, incoming
// messages, keep-alive pings and connection loss) that a session renders
// to the operator.
//
// Auto-reconnect is disabled: a lost connection ends the receive side of a
// session and is reported, never retried.
package mqttclient
