package main

import (
	"log/slog"

	"github.com/vpower-bridge/vpower-go/pkg/bridge"
	"github.com/vpower-bridge/vpower-go/pkg/config"
	"github.com/vpower-bridge/vpower-go/pkg/telemetry"
	"github.com/vpower-bridge/vpower-go/pkg/watchdog"
)

// newPublisher builds the configured sinks. It returns nil if none is
// configured.
func newPublisher(cfg config.TelemetryConfig, logger *slog.Logger) (*telemetry.Publisher, error) {
	format, err := telemetry.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	var sinks []telemetry.Sink
	if cfg.MQTT.Broker != "" {
		s := telemetry.NewMQTTSink(telemetry.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Topic:    cfg.MQTT.Topic,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			QoS:      cfg.MQTT.QoS,
			Retained: cfg.MQTT.Retained,
			Format:   format,
			Logger:   logger,
		})
		s.Start()
		sinks = append(sinks, s)
	}
	if cfg.Redis.Addr != "" {
		sinks = append(sinks, telemetry.NewRedisSink(telemetry.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
			TTL:      cfg.Redis.TTL,
		}))
	}
	if cfg.AMQP.URL != "" {
		s := telemetry.NewAMQPSink(telemetry.AMQPConfig{
			URL:        cfg.AMQP.URL,
			Exchange:   cfg.AMQP.Exchange,
			RoutingKey: cfg.AMQP.RoutingKey,
			Format:     format,
			Logger:     logger,
		})
		s.Start()
		sinks = append(sinks, s)
	}

	if len(sinks) == 0 {
		return nil, nil
	}
	for _, s := range sinks {
		logger.Info("publishing telemetry", "sink", s.Name(), "format", format.String())
	}
	return telemetry.NewPublisher(telemetry.PublisherConfig{
		QueueSize: cfg.QueueSize,
		Logger:    logger,
	}, sinks...), nil
}

func newReading(st bridge.Status, res watchdog.TickResult) telemetry.Reading {
	return telemetry.Reading{
		Time:              res.Time,
		SessionID:         st.SessionID,
		State:             res.State.String(),
		Power:             st.Power,
		EventTime:         st.EventTime,
		Pages:             st.Pages,
		Updates:           st.Updates,
		ReceiveAvailable:  st.ReceiveAvailable,
		TransmitAvailable: st.TransmitAvailable,
	}
}
