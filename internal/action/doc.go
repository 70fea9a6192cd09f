// Package action runs cell actions through a record, intercept and replay
// cycle.
//
// An action body never touches the table directly. It is first run against
// a Recorder, which logs each API call as a Call value. Plugins then see an
// Observer for the action and may register a Veto per API method. Finally
// the recorded calls are replayed, in order, on the real API; a vetoed call
// is skipped and a failing call is logged, and neither stops the calls that
// follow.
package action
