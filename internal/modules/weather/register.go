package weather

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jonboulle/clockwork"

	"ukweather/internal/modules/weather/controller"
	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/modules/weather/repository"
	"ukweather/internal/mqtt"
	"ukweather/internal/observability"
)

// Deps carries what the weather feature needs from the application.
// Subscriber and Metrics may be nil.
type Deps struct {
	DB         *sql.DB
	Clock      clockwork.Clock
	Logger     *slog.Logger
	Metrics    *observability.Metrics
	Subscriber mqtt.MQTTSubscriber
	// MQTTOptions apply to documents received over MQTT.
	MQTTOptions importer.Options
}

func RegisterFeature(mux *http.ServeMux, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	weatherRepository := repository.NewRepository(deps.DB, deps.Clock)
	weatherImporter := importer.New(weatherRepository, logger, deps.Metrics)

	weatherController := controller.NewWeatherController(weatherRepository, weatherImporter)
	weatherController.RegisterRoutes(mux)

	if deps.Subscriber != nil {
		registerMQTTHandler(deps.Subscriber, weatherImporter, deps.MQTTOptions, logger)
	}
}
