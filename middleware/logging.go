package middleware

import (
	"net/http"
	"time"

	"github.com/mnehpets/jsonrpc2/endpoint"
	"go.uber.org/zap"
)

// LoggingProcessor logs one line per HTTP request with its status and
// duration.
type LoggingProcessor struct {
	Logger *zap.Logger
}

// NewLoggingProcessor creates a LoggingProcessor. A nil logger discards.
func NewLoggingProcessor(logger *zap.Logger) *LoggingProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingProcessor{Logger: logger}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	if s.status == 0 {
		s.status = status
	}
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter { return s.ResponseWriter }

func (p *LoggingProcessor) Process(w http.ResponseWriter, r *http.Request, next func(http.ResponseWriter, *http.Request) error) error {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w}
	err := next(rec, r)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("remote", r.RemoteAddr),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		// The handler renders the error after the chain returns.
		fields = append(fields, zap.Error(err))
		p.Logger.Warn("request failed", fields...)
		return err
	}
	p.Logger.Info("request", append(fields, zap.Int("status", rec.status))...)
	return nil
}

var _ endpoint.Processor = (*LoggingProcessor)(nil)
