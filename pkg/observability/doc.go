/*
Package observability provides tools for monitoring the stepmesh pipelines.

It includes lifecycle hooks that log every processed object, and Prometheus metrics fed by
the same hooks. Metrics live on their own registry so a run can dump them to a node-exporter
textfile and a server can expose them on /metrics.
*/
package observability
