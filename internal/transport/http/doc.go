// Package http provides the HTTP transport layer for the collector:
// health probes, read access to collected day records, manual indicator
// submission and the collection trigger.
package http
