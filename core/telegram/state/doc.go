// Package state keeps the per-user conversation position: which flow a user
// is in, the step awaiting input and the fields collected so far.
//
// State lives in process memory only. Expired entries read as idle and are
// removed by Sweep.
package state
