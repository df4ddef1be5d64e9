package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// todaysRecord reads back the stored record for (userID, today) by
// appending an empty batch, which touches nothing.
func todaysRecord(t *testing.T, env *testEnv, userID string) map[string]int {
	t.Helper()
	fecha := time.Now().UTC().Format("20060102")
	record, _, err := env.db.Telemetry().Append(context.Background(), userID, fecha, nil, nil, nil)
	require.NoError(t, err)
	return map[string]int{
		"cardiacos":    len(record.DatosCardiacos),
		"acelerometro": len(record.DatosAcelerometro),
		"ubicacion":    len(record.DatosUbicacion),
	}
}

func TestIngest(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/biometricos", `{
		"userId": "user1",
		"datosCardiacos": [{"timestamp": 1, "frecuencia": 72}],
		"datosAcelerometro": [{"timestamp": 1, "x": -2.45, "y": 0.85, "z": 9.81}],
		"datosUbicacion": [{"timestamp": 1, "latitud": 19.4326, "longitud": -99.1332}]
	}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Datos guardados correctamente", decode(t, rr)["message"])

	counts := todaysRecord(t, env, "user1")
	assert.Equal(t, 1, counts["cardiacos"])
	assert.Equal(t, 1, counts["acelerometro"])
	assert.Equal(t, 1, counts["ubicacion"])
}

func TestIngest_SecondBatchAppends(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/biometricos",
		`{"userId": "user1", "datosCardiacos": [{"timestamp": 1, "frecuencia": 70}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = env.do(t, http.MethodPost, "/biometricos",
		`{"userId": "user1", "datosCardiacos": [{"timestamp": 2, "frecuencia": 71}]}`)
	require.Equal(t, http.StatusOK, rr.Code)

	// Both batches land in the same daily record
	counts := todaysRecord(t, env, "user1")
	assert.Equal(t, 2, counts["cardiacos"])
}

func TestIngest_MissingUserID(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/biometricos", `{"datosCardiacos": []}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "validation_error", decode(t, rr)["error"])
}

func TestIngest_BadUserID(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/biometricos", `{"userId": "user 1; drop"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestIngest_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodPost, "/biometricos", `{"userId": "user1"}`)
	assert.Equal(t, http.StatusOK, rr.Code)
}
