// Package api holds the HTTP data transfer types of the NodeFlow API.
//
// # API Overview
//
// NodeFlow serves one flow definition over HTTP:
//   - POST /api/v1/flows/execute runs the flow against the JSON request body
//     and returns the resulting payload verbatim
//   - POST /execute is an alias of the above
//   - POST /api/v1/flows/execute/stream runs the flow and streams per-node
//     events as Server-Sent Events
//   - GET /api/v1/flows describes the loaded definition
//   - health and version endpoints
//
// # Authentication
//
// When API keys are configured, requests must carry the X-API-Key header:
//
//	X-API-Key: your-api-key
//
// Optionally a JWT bearer token is required as well.
//
// # Errors
//
// Failures use the common envelope:
//
//	{"success":false,"error":{"code":"NODE_FAILED","message":"..."},"timestamp":"...","request_id":"..."}
//
// DECODE_ERROR maps to 400, NODE_FAILED to 422 and UNKNOWN to 500.
package api
