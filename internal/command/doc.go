// Package command delivers cell, row and space commands to their targets.
//
// Every registry runs a command through the plugin interception chain
// before delivery:
//
//	Dispatch -> chain (skip origin) -> blocked | handler -> ok | error command
//
// Any interceptor returning false drops the command silently. A handler
// that returns an error or panics receives a synthetic "error" command
// carrying an ErrorPayload; that command bypasses the chain. Commands
// without a target are seen only by the chain, which is how raw keyboard
// events are broadcast to plugins.
//
// Registries are safe for concurrent use. Handlers and interceptors are
// always called without any registry lock held, so they may dispatch
// further commands.
package command
