package weather

import (
	"bytes"
	"context"
	"io"
	"log/slog"

	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/mqtt"
)

// documentImporter is the importer as seen by the MQTT handler.
type documentImporter interface {
	Import(ctx context.Context, source string, r io.Reader, opts importer.Options) (importer.Report, error)
}

// registerMQTTHandler imports every document received on the ingest topic.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, im documentImporter, opts importer.Options, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(ctx context.Context, msg mqtt.Message) error {
		logger.Debug("processing weather document", "topic", msg.Topic, "size", len(msg.Payload))

		report, err := im.Import(ctx, "mqtt", bytes.NewReader(msg.Payload), opts)
		if err != nil {
			logger.Error("failed to import weather document", "topic", msg.Topic, "error", err)
			return err
		}

		logger.Info("imported weather document",
			"topic", msg.Topic,
			"run_id", report.RunID,
			"created", report.Created,
			"updated", report.Updated,
			"skipped", report.Skipped,
		)
		return nil
	})
}
