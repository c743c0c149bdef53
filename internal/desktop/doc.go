// Package desktop binds the agent to a real display: screen capture through
// github.com/vova616/screenshot and synthetic input through
// github.com/go-vgo/robotgo. Nothing else in the module touches the host
// desktop, so tests and --dry-run never import this package's side effects.
package desktop
