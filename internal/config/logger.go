package config

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts zap to the narrow interface the rest of the bot logs
// through: an action on an entity, attributed to a user.
type Logger struct {
	zl *zap.Logger
}

func NewLogger() (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zl, err := cfg.Build(zap.Fields(zap.String("service", "totalizator-bot")))
	if err != nil {
		return nil, err
	}
	return &Logger{zl: zl}, nil
}

func (l *Logger) Info(action string, entity string, entityID string, userID int64, status string) {
	l.zl.Info(action,
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.Int64("user_id", userID),
		zap.String("status", status),
	)
}

func (l *Logger) Error(err error, action string, entity string, entityID string, userID int64) {
	l.zl.Error(action,
		zap.String("entity", entity),
		zap.String("entity_id", entityID),
		zap.Int64("user_id", userID),
		zap.Error(err),
	)
}

func (l *Logger) Sync() {
	_ = l.zl.Sync()
}
