// Package middleware provides HTTP middleware for the viewer.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with control characters
//     stripped from every client-supplied field
//   - Prometheus request metrics labeled by route template
package middleware
