package domain

import "strings"

// TopicPrefix is the stream prefix every tenant topic lives under.
const TopicPrefix = "/tt"

// NormalizeTopic places topic under TopicPrefix, inserting a separator when
// the topic does not already start with one.
func NormalizeTopic(topic string) string {
	if strings.HasPrefix(topic, "/") {
		return TopicPrefix + topic
	}
	return TopicPrefix + "/" + topic
}

// PublishTopic derives the topic a message is published to from a
// subscription topic: wildcard characters are removed, then trailing
// separators. "/tt/ajuc/#" becomes "/tt/ajuc".
func PublishTopic(topic string) (string, error) {
	t := strings.NewReplacer("#", "", "+", "").Replace(topic)
	t = strings.TrimRight(t, "/")
	if t == "" {
		return "", ErrInvalidTopic.WithDetails("topic " + topic + " is empty without wildcards")
	}
	return t, nil
}
