// Package httpserver provides the shared HTTP server shell for the
// coordinator binaries: chi routing with standard middleware, structured
// request logging, health and drain endpoints for load-balancer
// coordination, optional pprof, and a side metrics listener.
package httpserver
