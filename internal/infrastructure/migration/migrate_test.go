package migration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestMigrateLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := migrateLogger{log: zap.New(core)}

	assert.True(t, l.Verbose())
	l.Printf("Finished 2/u add_entry_images (read 1ms, ran 3ms)\n")
	if assert.Equal(t, 1, logs.Len()) {
		assert.Equal(t, "Finished 2/u add_entry_images (read 1ms, ran 3ms)", logs.All()[0].Message)
	}

	quiet, _ := observer.New(zapcore.InfoLevel)
	assert.False(t, migrateLogger{log: zap.New(quiet)}.Verbose())
}
