// Package telemetry publishes the bridge's live state to external systems.
//
// The bridge hands one Reading per watchdog tick to a Publisher. Publish
// never blocks: readings go into a bounded queue and are dropped when it is
// full. A single goroutine (Run) drains the queue and fans each reading out
// to every Sink.
//
// Sinks:
//   - MQTTSink publishes the encoded reading to a topic
//   - RedisSink keeps <prefix>:power, <prefix>:state and <prefix>:event_time
//     current, with a TTL so stale values expire when the bridge dies
//   - AMQPSink publishes to an exchange
//
// MQTT and AMQP links are kept up by a connection.Manager; a sink that is
// not connected reports connection.ErrNotConnected and the reading is lost
// for that sink only.
package telemetry
