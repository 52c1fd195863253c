package transport

import (
	"context"

	"github.com/crosswire-ai/mcp-go/pkg/logging"
	"github.com/crosswire-ai/mcp-go/pkg/protocol"
)

// LoggingMiddleware logs every payload crossing the transport at debug
// level, plus lifecycle transitions and send failures.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a middleware that logs wire traffic
func NewLoggingMiddleware(logger logging.Logger) Middleware {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &LoggingMiddleware{
		logger: logger.WithFields(logging.String("component", "transport")),
	}
}

// Wrap implements the Middleware interface
func (lm *LoggingMiddleware) Wrap(transport Transport) Transport {
	return &loggingTransport{
		middlewareTransport: middlewareTransport{next: transport},
		logger:              lm.logger,
	}
}

type loggingTransport struct {
	middlewareTransport
	logger logging.Logger
}

func (lt *loggingTransport) Start(ctx context.Context) error {
	err := lt.middlewareTransport.Start(ctx)
	if err != nil {
		lt.logger.WithError(err).Error("transport start failed")
	} else {
		lt.logger.Debug("transport started")
	}
	return err
}

func (lt *loggingTransport) Send(ctx context.Context, data []byte) error {
	lt.logger.Debug("sending message",
		logging.String("method", protocol.SniffMethod(data)),
		logging.String("type", protocol.Classify(data).String()),
		logging.Int("bytes", len(data)),
	)

	err := lt.middlewareTransport.Send(ctx, data)
	if err != nil {
		lt.logger.WithError(err).Error("send failed",
			logging.String("method", protocol.SniffMethod(data)),
		)
	}
	return err
}

func (lt *loggingTransport) Close() error {
	lt.logger.Debug("transport closing")
	return lt.middlewareTransport.Close()
}

func (lt *loggingTransport) SetMessageHandler(handler MessageHandler) {
	lt.middlewareTransport.SetMessageHandler(func(data []byte) {
		lt.logger.Debug("received message",
			logging.String("method", protocol.SniffMethod(data)),
			logging.String("type", protocol.Classify(data).String()),
			logging.Int("bytes", len(data)),
		)
		handler(data)
	})
}

func (lt *loggingTransport) SetErrorHandler(handler ErrorHandler) {
	lt.middlewareTransport.SetErrorHandler(func(err error) {
		lt.logger.WithError(err).Warn("transport error")
		if handler != nil {
			handler(err)
		}
	})
}
