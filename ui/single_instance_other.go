//go:build !windows

package main

// Single-instance enforcement is Windows-only; on other platforms every
// launch proceeds.
func acquireSingleInstance() bool { return true }

func notifyExistingInstance() {}

func registerWindowMessageHook(showFn func()) {}
