package observability

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Smackface/go-easy-apply/internal/config"
)

// Journal event names.
const (
	EventUnanswered  = "unanswered_question"
	EventApplication = "application"
	EventSkipped     = "listing_skipped"
)

// NewJournal returns a JSON-lines logger that records unanswered questions and
// one line per application outcome. It is independent of the global logger
// level so entries are never filtered out.
func NewJournal(cfg config.JournalConfig, runID string) *zap.Logger {
	if cfg.Path == "" {
		return zap.NewNop()
	}
	return NewJournalTo(rotating(cfg.Path, cfg.MaxSize, cfg.MaxBackups, cfg.MaxAge, false), runID)
}

// NewJournalTo builds a journal on an arbitrary sink.
func NewJournalTo(ws zapcore.WriteSyncer, runID string) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.LevelKey = zapcore.OmitKey
	encoderConfig.CallerKey = zapcore.OmitKey
	encoderConfig.StacktraceKey = zapcore.OmitKey
	encoderConfig.MessageKey = "event"

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), ws, zap.DebugLevel)
	return zap.New(core).With(zap.String("run_id", runID))
}
