package errors

import (
	"errors"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "error without cause",
			err: &AppError{
				Code:    ErrCodeNotFound,
				Message: "job not found",
			},
			want: "job not found",
		},
		{
			name: "error with cause",
			err: &AppError{
				Code:    ErrCodeWorkerExecution,
				Message: "worker call failed",
				Cause:   errors.New("connection refused"),
			},
			want: "worker call failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &AppError{
		Code:    ErrCodeInternal,
		Message: "wrapped error",
		Cause:   cause,
	}

	if unwrapped := err.Unwrap(); !errors.Is(unwrapped, cause) {
		t.Errorf("AppError.Unwrap() = %v, want %v", unwrapped, cause)
	}
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"validation", Validation("bad input"), ErrCodeValidation},
		{"not found", NotFound("missing"), ErrCodeNotFound},
		{"payment", Payment("gateway down"), ErrCodePayment},
		{"worker execution", WorkerExecution("worker 500"), ErrCodeWorkerExecution},
		{"timeout", Timeout("deadline exceeded"), ErrCodeTimeout},
		{"analyzer", Analyzer("scan failed"), ErrCodeAnalyzer},
		{"unauthorized", Unauthorized("bad token"), ErrCodeUnauthorized},
		{"internal", Internal("boom"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Code = %v, want %v", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Message is empty")
			}
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("source_files", "must be a non-empty object")
	if err.Code != ErrCodeValidation {
		t.Errorf("ValidationField().Code = %v, want %v", err.Code, ErrCodeValidation)
	}
	if err.Field != "source_files" {
		t.Errorf("ValidationField().Field = %v, want %v", err.Field, "source_files")
	}
	if GetField(err) != "source_files" {
		t.Errorf("GetField() = %v, want %v", GetField(err), "source_files")
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := Wrap(cause, ErrCodeWorkerExecution, "invoke worker")

	if err.Code != ErrCodeWorkerExecution {
		t.Errorf("Wrap().Code = %v, want %v", err.Code, ErrCodeWorkerExecution)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrap() lost the cause chain")
	}

	if got := Wrap(nil, ErrCodeInternal, "ignored"); got != nil {
		t.Errorf("Wrap(nil) = %v, want nil", got)
	}
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(cause, ErrCodeAnalyzer, "analyze job %s", "j-1")
	if err.Message != "analyze job j-1" {
		t.Errorf("Wrapf().Message = %v", err.Message)
	}
	if !errors.Is(err, cause) {
		t.Error("Wrapf() lost the cause chain")
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  bool
	}{
		{"validation matches", Validation("x"), IsValidation, true},
		{"not found matches", NotFound("x"), IsNotFound, true},
		{"payment matches", Payment("x"), IsPayment, true},
		{"worker execution matches", WorkerExecution("x"), IsWorkerExecution, true},
		{"timeout matches", Timeout("x"), IsTimeout, true},
		{"analyzer matches", Analyzer("x"), IsAnalyzer, true},
		{"unauthorized matches", Unauthorized("x"), IsUnauthorized, true},
		{"internal matches", Internal("x"), IsInternal, true},
		{"mismatch", Timeout("x"), IsValidation, false},
		{"plain error", errors.New("x"), IsTimeout, false},
		{"nil error", nil, IsNotFound, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.check(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPredicates_WrappedChain(t *testing.T) {
	inner := Unauthorized("worker rejected token")
	outer := Wrap(inner, ErrCodeWorkerExecution, "invoke worker")

	// errors.As finds the outermost AppError first.
	if !IsWorkerExecution(outer) {
		t.Error("expected outer code worker_execution")
	}
	if !errors.Is(outer, inner) {
		t.Error("expected inner error preserved in chain")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(Timeout("x")); got != ErrCodeTimeout {
		t.Errorf("GetCode() = %v, want %v", got, ErrCodeTimeout)
	}
	if got := GetCode(errors.New("plain")); got != "" {
		t.Errorf("GetCode(plain) = %v, want empty", got)
	}
}
