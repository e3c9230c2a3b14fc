// Package model holds the request and response types exchanged by the HTTP
// gateway and returned by the SDK's health report.
package model
