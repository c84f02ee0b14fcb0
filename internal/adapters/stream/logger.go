package stream

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/kioko/matchpulse/pkg/logger"
)

// watermillLogger routes pub/sub internals through the service logger.
type watermillLogger struct {
	fields watermill.LogFields
}

func (l watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	logger.Named("stream").Error(context.Background(), msg, append(convert(l.fields.Add(fields)), logger.Error(err))...)
}

func (l watermillLogger) Info(msg string, fields watermill.LogFields) {
	logger.Named("stream").Debug(context.Background(), msg, convert(l.fields.Add(fields))...)
}

func (l watermillLogger) Debug(msg string, fields watermill.LogFields) {
	logger.Named("stream").Debug(context.Background(), msg, convert(l.fields.Add(fields))...)
}

func (l watermillLogger) Trace(msg string, fields watermill.LogFields) {
	logger.Named("stream").Debug(context.Background(), msg, convert(l.fields.Add(fields))...)
}

func (l watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{fields: l.fields.Add(fields)}
}

func convert(fields watermill.LogFields) []logger.Field {
	out := make([]logger.Field, 0, len(fields))
	for k, v := range fields {
		out = append(out, logger.Any(k, v))
	}
	return out
}
