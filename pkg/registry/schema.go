package registry

import "fmt"

// Redis key pattern helpers
//
// All keys and Pub/Sub channels are namespaced by instance name so multiple
// board deployments can coexist on a single Redis server.
//
// Key pattern: topicboard:{instance_name}:channel:{channel_key}
// Channel pattern: topicboard:{instance_name}:board_events

// ChannelStateKey returns the Redis key holding a channel's state hash.
func ChannelStateKey(instanceName, channelKey string) string {
	return fmt.Sprintf("topicboard:%s:channel:%s", instanceName, channelKey)
}

// ChannelScanPattern returns the SCAN pattern matching every channel state
// key for an instance.
func ChannelScanPattern(instanceName string) string {
	return fmt.Sprintf("topicboard:%s:channel:*", instanceName)
}

// BoardEventsChannel returns the Pub/Sub channel carrying save/delete events.
func BoardEventsChannel(instanceName string) string {
	return fmt.Sprintf("topicboard:%s:board_events", instanceName)
}
