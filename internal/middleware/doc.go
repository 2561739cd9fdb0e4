// Package middleware provides HTTP middleware for the relinker API.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression of large JSON responses
package middleware
