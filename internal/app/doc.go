// Package app wires the collector together and manages its lifecycle:
// configuration, logging, the indicator store, the ingestion service, the
// portal runner, the scheduler and the HTTP server, plus graceful
// shutdown on SIGINT/SIGTERM.
//
// The typical entry point is:
//
//	application, err := app.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// All initialization errors are returned to the caller; the package never
// calls os.Exit itself.
package app
