package kdialog

import "context"

// Noop returns a dialog surface that displays nothing, keeps every progress
// dialog "open", and answers every confirmation affirmatively. Used when the
// desktop surface is unavailable and in tests.
func Noop() Dialogs {
	return noopDialogs{}
}

type noopDialogs struct{}

func (noopDialogs) OpenProgress(context.Context, string, string) (ProgressHandle, error) {
	return noopProgress{}, nil
}

func (noopDialogs) WarnContinueCancel(context.Context, string, string) bool { return true }

func (noopDialogs) Menu(context.Context, string, string, []MenuEntry) (string, bool) {
	return "", false
}

func (noopDialogs) Error(context.Context, string) {}

type noopProgress struct{}

func (noopProgress) Set(context.Context, int, string) bool { return true }

func (noopProgress) Close(context.Context) {}
