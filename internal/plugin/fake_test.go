// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 TallyBot Contributors

package plugin_test

import (
	"context"
	"errors"
)

// fakePlugin is a scripted plugin implementation for engine tests. Hooks
// record their invocation into calls (if set) and return the configured
// error.
type fakePlugin struct {
	name  string
	calls *[]string

	loadErr    error
	enableErr  error
	disableErr error
	unloadErr  error

	panicOnEnable bool
}

var errScripted = errors.New("scripted failure")

func (f *fakePlugin) record(hook string) {
	if f.calls != nil {
		*f.calls = append(*f.calls, hook+":"+f.name)
	}
}

func (f *fakePlugin) OnLoad(_ context.Context) error {
	f.record("load")
	return f.loadErr
}

func (f *fakePlugin) OnEnable(_ context.Context) error {
	f.record("enable")
	if f.panicOnEnable {
		panic("scripted panic")
	}
	return f.enableErr
}

func (f *fakePlugin) OnDisable(_ context.Context) error {
	f.record("disable")
	return f.disableErr
}

func (f *fakePlugin) OnUnload(_ context.Context) error {
	f.record("unload")
	return f.unloadErr
}
