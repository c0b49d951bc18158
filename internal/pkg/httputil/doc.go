// Package httputil provides the JSON response envelope shared by all
// HTTP handlers: success helpers, the error envelope, and request-body
// decoding with uniform 400 handling.
package httputil
