// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"testing"
)

func TestExitCodeValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		value     ExitCode
		wantValid bool
	}{
		{name: "zero is valid", value: 0, wantValid: true},
		{name: "one is valid", value: 1, wantValid: true},
		{name: "255 is valid", value: 255, wantValid: true},
		{name: "negative is invalid", value: -1, wantValid: false},
		{name: "256 is invalid", value: 256, wantValid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.value.Validate()
			if (err == nil) != tt.wantValid {
				t.Errorf("ExitCode(%d).Validate() = %v, want valid=%v", tt.value, err, tt.wantValid)
			}
			if err != nil && !errors.Is(err, ErrInvalidExitCode) {
				t.Errorf("error does not wrap ErrInvalidExitCode: %v", err)
			}
		})
	}
}

func TestExitCodePredicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code    ExitCode
		success bool
		signal  bool
	}{
		{0, true, false},
		{1, false, false},
		{128, false, false},
		{130, false, true},
		{137, false, true},
	}
	for _, tt := range tests {
		if got := tt.code.IsSuccess(); got != tt.success {
			t.Errorf("ExitCode(%d).IsSuccess() = %v, want %v", tt.code, got, tt.success)
		}
		if got := tt.code.IsSignal(); got != tt.signal {
			t.Errorf("ExitCode(%d).IsSignal() = %v, want %v", tt.code, got, tt.signal)
		}
	}

	if got := ExitCode(42).String(); got != "42" {
		t.Errorf("ExitCode(42).String() = %q, want %q", got, "42")
	}
}
