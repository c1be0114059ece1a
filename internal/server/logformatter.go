package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/rs/zerolog"
)

type logformatter struct {
	logger zerolog.Logger
}

func (l *logformatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	entry := &logentry{
		logger: l.logger,
		req: logrequest{
			id:     middleware.GetReqID(r.Context()),
			method: r.Method,
			path:   r.URL.Path,
			remote: r.RemoteAddr,
		},
	}

	return entry
}

type logrequest struct {
	id     string
	method string
	path   string
	remote string
}

type logentry struct {
	logger zerolog.Logger
	req    logrequest
}

func (e *logentry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	e.logger.Debug().
		Str("id", e.req.id).
		Str("method", e.req.method).
		Str("path", e.req.path).
		Str("remote", e.req.remote).
		Int("status", status).
		Int("bytes", bytes).
		Dur("elapsed", elapsed).
		Msg("request complete")
}

func (e *logentry) Panic(v interface{}, stack []byte) {
	e.logger.Error().
		Str("id", e.req.id).
		Str("method", e.req.method).
		Str("path", e.req.path).
		Interface("panic", v).
		Bytes("stack", stack).
		Msg("request panic")
}
