package weather

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ukweather/internal/migrate"
	"ukweather/internal/modules/weather/importer"
	"ukweather/internal/mqtt"
	"ukweather/internal/observability"
)

type fakeSubscriber struct {
	handler mqtt.MessageHandler
}

func (f *fakeSubscriber) SetMessageHandler(h mqtt.MessageHandler) { f.handler = h }

func setup(t *testing.T, sub mqtt.MQTTSubscriber, opts importer.Options) *http.ServeMux {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrate.Run(db))

	mux := http.NewServeMux()
	RegisterFeature(mux, Deps{
		DB:          db,
		Clock:       clockwork.NewFakeClock(),
		Metrics:     observability.NewMetrics(),
		Subscriber:  sub,
		MQTTOptions: opts,
	})
	return mux
}

func get(mux *http.ServeMux, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRegisterFeature_MQTTDocumentsAreImported(t *testing.T) {
	sub := &fakeSubscriber{}
	mux := setup(t, sub, importer.Options{Replace: true})
	require.NotNil(t, sub.handler)

	assert.Equal(t, http.StatusNotFound, get(mux, "/api/v1/weather").Code)

	err := sub.handler(context.Background(), mqtt.Message{Topic: "ukweather/import", Payload: []byte("year ann\n2020 10.0\n")})
	require.NoError(t, err)
	err = sub.handler(context.Background(), mqtt.Message{Topic: "ukweather/import", Payload: []byte("year ann\n2020 10.5\n")})
	require.NoError(t, err)

	rec := get(mux, "/api/v1/weather/2020")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"annual":10.5`)
}

func TestRegisterFeature_MQTTFormatErrorIsReturned(t *testing.T) {
	sub := &fakeSubscriber{}
	setup(t, sub, importer.Options{})

	err := sub.handler(context.Background(), mqtt.Message{Topic: "t", Payload: []byte("jan feb\n1 2\n")})
	assert.Error(t, err)
}

func TestRegisterFeature_HTTPImportRoundTrip(t *testing.T) {
	mux := setup(t, nil, importer.Options{})

	rec := httptest.NewRecorder()
	body := "year jan feb win ann\n2020 5.1 6.2 5.6 10.0\n2021 --- 7.0 N/A 11.0\n"
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/weather/import", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"created":2`)

	rec = get(mux, "/api/v1/weather/statistics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"hottest":{"year":2021,"temperature":11}`)

	rec = get(mux, "/api/v1/weather/export")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "2020")
}
