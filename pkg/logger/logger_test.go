package logger_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/proveedores-api/pkg/logger"
)

func TestFromWriter_RespetaNivel(t *testing.T) {
	var buf bytes.Buffer
	log := logger.FromWriter(&buf, "warn")

	log.Info().Msg("no debe aparecer")
	assert.Empty(t, buf.String(), "info no debe escribirse con nivel warn")

	log.Warn().Str("key", "sup_1").Msg("registro inválido")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "sup_1", entry["key"])
}

func TestNamed_AgregaComponente(t *testing.T) {
	var buf bytes.Buffer
	log := logger.FromWriter(&buf, "debug").Named("filestore")
	log.Debug().Msg("hola")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "filestore", entry["component"])
}

func TestNop_NoEscribe(t *testing.T) {
	log := logger.Nop()
	assert.NotPanics(t, func() { log.Error().Msg("silencio") })
}
