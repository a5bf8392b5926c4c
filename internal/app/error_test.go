package app

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "should_return_message_without_cause",
			err:  NewError(KindNoAudioStream, "No audio stream found"),
			want: "No audio stream found",
		},
		{
			name: "should_append_cause",
			err:  NewError(KindMuxFailure, "Failed to combine %s", "video").WithCause(errors.New("exit status 1")),
			want: "Failed to combine video: exit status 1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error.Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindOf(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := fmt.Errorf("failed to fetch: %w", NewError(KindFetchFailure, "Download failed").WithCause(cause))

	if got := KindOf(wrapped); got != KindFetchFailure {
		t.Errorf("KindOf() = %v, want %v", got, KindFetchFailure)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("errors.Is() should reach the cause through Error.Unwrap")
	}
	if got := KindOf(cause); got != KindUnknown {
		t.Errorf("KindOf() = %v, want %v", got, KindUnknown)
	}
	if got := UserMessage(wrapped); got != "Download failed" {
		t.Errorf("UserMessage() = %q, want %q", got, "Download failed")
	}
	if got := UserMessage(cause); got != "connection reset" {
		t.Errorf("UserMessage() = %q, want %q", got, "connection reset")
	}
}

func TestFetched_Paths(t *testing.T) {
	audioOnly := Fetched{AudioPath: "a.mp3"}
	if got := audioOnly.Paths(); len(got) != 1 || got[0] != "a.mp3" {
		t.Errorf("Fetched.Paths() = %v, want [a.mp3]", got)
	}
	both := Fetched{VideoPath: "v.mp4", AudioPath: "a.mp3"}
	if got := both.Paths(); len(got) != 2 || got[0] != "v.mp4" {
		t.Errorf("Fetched.Paths() = %v, want [v.mp4 a.mp3]", got)
	}
}
