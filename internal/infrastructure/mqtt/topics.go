package mqtt

import (
	"fmt"
	"strings"
)

// TopicRoot is the first level of every ledtube topic.
//
// Hierarchy:
//
//	ledtube/system/status          online/offline (retained, LWT)
//	ledtube/engine/status          engine status snapshot (retained)
//	ledtube/engine/stats           per-window stream stats
//	ledtube/event/{type}           events such as device_registered
//	ledtube/command/{name...}      control commands to the engine
const TopicRoot = "ledtube"

// Event types published under ledtube/event/.
const (
	EventDeviceRegistered = "device_registered"
	EventShowChanged      = "show_changed"
)

// Topics provides builders for ledtube MQTT topics.
//
//	topics := mqtt.Topics{}
//	topics.Command("streaming/start") // "ledtube/command/streaming/start"
type Topics struct{}

// SystemStatus returns the node's online/offline topic.
func (Topics) SystemStatus() string {
	return TopicRoot + "/system/status"
}

// EngineStatus returns the retained engine status topic.
func (Topics) EngineStatus() string {
	return TopicRoot + "/engine/status"
}

// StreamStats returns the topic for per-window streamer stats.
func (Topics) StreamStats() string {
	return TopicRoot + "/engine/stats"
}

// Event returns the topic for an event type.
//
// Example: ledtube/event/device_registered
func (Topics) Event(eventType string) string {
	return fmt.Sprintf("%s/event/%s", TopicRoot, eventType)
}

// Command returns the topic for a named command. Names may span levels.
//
// Example: ledtube/command/discovery/start
func (Topics) Command(name string) string {
	return fmt.Sprintf("%s/command/%s", TopicRoot, name)
}

// AllCommands matches every command topic.
func (Topics) AllCommands() string {
	return TopicRoot + "/command/#"
}

// AllEvents matches every event topic.
func (Topics) AllEvents() string {
	return TopicRoot + "/event/+"
}

// CommandName extracts the command name from a command topic.
// ok is false for topics outside ledtube/command/.
func (Topics) CommandName(topic string) (name string, ok bool) {
	prefix := TopicRoot + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	name = strings.TrimPrefix(topic, prefix)
	return name, name != ""
}
