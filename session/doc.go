// Package session keeps conversation history across runs. When a run is
// given a Session, its stored items are prepended to the new input and the
// run's input and generated items are appended once it succeeds.
package session
