// Package config loads bridge settings from a YAML file.
//
// Every field has a default, so an empty file (or no file) yields a working
// configuration that pairs with any speed/cadence sensor:
//
//	network_key: B9A521FBBD72C345
//	sensor_type: speed_cadence
//	speed_sensor_id: 0        # 0 pairs with any sensor
//	power_sensor_id: 12345
//	runtime: sim
//	open_timeout: 10s
//	watchdog:
//	  stale_after: 3s
//	  tick_interval: 1s
//	calculator:
//	  name: polynomial
//	  wheel_circumference: 2.105
//	event_log: ""             # path of a .vlog capture, empty disables it
//	telemetry:
//	  mqtt:
//	    broker: tcp://localhost:1883
//	  redis:
//	    addr: localhost:6379
package config
