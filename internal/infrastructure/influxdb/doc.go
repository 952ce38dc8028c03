// Package influxdb records Homepanel device state history in InfluxDB.
//
// Every applied device mutation and mood application is written as a
// point (measurements device_state and room_mood) through the batched,
// non-blocking write API. Telemetry is best-effort: a disabled or
// unreachable server never affects the mutation that produced the point.
//
// Usage:
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteDeviceState(influxdb.DeviceState{House: "Oak", ID: "dev-0f8e2c1a-5b3d-4e7f-9a10-2c4b6d8e0f12", Type: "Lights", On: true, Brightness: 40})
package influxdb
