// Package commands defines the pushctl CLI and wires dependencies for subcommands.
//
// Commands
//
//   - sign-in    Authenticate and persist the session token
//   - sign-out   Clear the session token
//   - status     Print session, device and configuration state
//   - register   Register for push notifications and print the token
//   - channels   Register, then list configured notification channels
//   - send       Trigger a notification locally or through the API
//   - watch      Keep the notification listeners attached until interrupted
//
// # Implementation
//
// The root command resolves configuration (defaults, YAML file, .env file,
// environment, flags), initialises logging and the optional metrics server,
// and builds the app on top of the loopback platform and the file-backed
// secure store before any subcommand runs.
package commands
