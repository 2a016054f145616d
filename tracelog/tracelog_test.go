package tracelog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/elmattic/psyche-sub000/opcodes"
)

func TestCaptureStateLogsStepOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, logrus.DebugLevel)

	tr.CaptureState(4, opcodes.ADD, 999, 3, nil, nil)

	out := buf.String()
	if !strings.Contains(out, "step") {
		t.Errorf("expected a step log line, got %q", out)
	}
	if !strings.Contains(out, "ADD") {
		t.Errorf("expected opcode name ADD in output, got %q", out)
	}
	if tr.Steps() != 1 {
		t.Errorf("Steps() = %d, want 1", tr.Steps())
	}
}

func TestCaptureStateLogsFaultOnError(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, logrus.DebugLevel)

	tr.CaptureState(0, opcodes.ADD, 5, 0, nil, errTest)

	out := buf.String()
	if !strings.Contains(out, "step fault") {
		t.Errorf("expected a fault log line, got %q", out)
	}
	if !strings.Contains(out, "level=error") {
		t.Errorf("expected error level in output, got %q", out)
	}
}

func TestStepsIncrementsAcrossCalls(t *testing.T) {
	var buf bytes.Buffer
	tr := New(&buf, logrus.DebugLevel)

	for i := 0; i < 3; i++ {
		tr.CaptureState(uint64(i), opcodes.STOP, 1, 0, nil, nil)
	}
	if tr.Steps() != 3 {
		t.Errorf("Steps() = %d, want 3", tr.Steps())
	}
}

func TestNewDefaultsNilWriterToStdout(t *testing.T) {
	tr := New(nil, logrus.InfoLevel)
	if tr.log.Out == nil {
		t.Error("expected a non-nil output writer")
	}
}

var errTest = stubErr("fault")

type stubErr string

func (e stubErr) Error() string { return string(e) }
