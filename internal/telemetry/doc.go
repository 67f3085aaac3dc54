// Package telemetry provides rte.TelemetrySink implementations that do not
// need a database: Prometheus metrics, an in-memory recorder and a fanout
// that feeds several sinks from one engine.
//
// The SQLite store in package store is the durable sink; these are meant
// to sit beside it.
package telemetry
