// Package logger provides structured logging for the MyWebAPI host using
// zerolog.
//
// Loggers carry a service tag and optional component tag. Fields are passed
// as maps so call sites stay free of zerolog types:
//
//	log := logger.WithComponent("server")
//	log.Info("listener bound", logger.Fields("addr", addr))
//
// Request-scoped values (request id, user id, trace id) are attached to a
// context with ContextWith and picked up by WithContext.
package logger
