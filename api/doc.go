// Package api provides HTTP REST API handlers for the CO2 Grid Game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create new session ({"config_id": "compact"})
//   - GET /api/sessions - List sessions (sort=created|accessed, order, limit)
//   - GET /api/sessions/{id} - Get specific session
//   - DELETE /api/sessions/{id} - Delete session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current state
//   - POST /api/sessions/{id}/action - Perform an action ({"action": "bike"})
//   - POST /api/sessions/{id}/reset - Abandon the run
//   - GET /api/sessions/{id}/leaderboard - Top scores
//   - GET /api/actions?config=compact - Action table
//
// Configuration:
//   - GET /api/configs - List available configurations
//   - GET /api/configs/{name} - Full configuration
//
// CO2 display:
//   - GET /api/device, GET /api/device/ports
//   - POST /api/device/connect ({"port": "/dev/ttyACM0", "baud": 9600})
//   - POST /api/device/disconnect
//
// Also served: /healthz, /metrics (Prometheus) and /ws?session=<id>.
//
// Errors are returned as {"error": "message"}. Unknown sessions and configs
// map to 404, unknown actions to 400 and a display that cannot be opened
// to 502.
package api
