// Package mqtt connects ledtube-core to an MQTT broker for remote control
// and status reporting.
//
// The bus carries control traffic only. LED frames never go through the
// broker; the streamer sends them to devices directly over UDP.
//
// Topics (see Topics):
//   - ledtube/system/status: retained online/offline, with a Last Will so
//     subscribers notice a crashed node
//   - ledtube/engine/status, ledtube/engine/stats: engine state and stream stats
//   - ledtube/event/{type}: device registrations and show changes
//   - ledtube/command/#: start/stop and show commands handled by the engine
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllCommands(), 1, handler)
package mqtt
