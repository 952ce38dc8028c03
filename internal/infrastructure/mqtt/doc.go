// Package mqtt publishes Homepanel house events to an MQTT broker.
//
// MQTT is the optional cross-process half of the broadcast fan-out: every
// event the core pushes to WebSocket clients is also published to
// homepanel/house/{house}/events/{name}, so other services (wall panels,
// automations, bridges) can follow one household without polling.
//
// The client keeps a retained online/offline status on
// homepanel/system/status, backed by a Last Will for crashes.
//
// Usage:
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	topic := client.Topics().HouseEvent("Oak Lodge", "deviceUpdated")
//	err = client.Publish(topic, payload, client.QoS(), false)
package mqtt
