// Package tracelog implements interpreter.Tracer on top of logrus,
// grounded on the teacher's log package idiom (a *logrus.Logger
// wrapped by a small struct, key/value context pairs, level-gated
// output) but scoped down to what a single Execute run needs: no
// root singleton, no node-config wiring, no lumberjack file rotation,
// no JSON/text formatter switch. Those exist in the teacher to serve a
// long-lived multi-subsystem node process; a StepTracer lives for one
// run and is handed an io.Writer by its caller, so that machinery has
// nothing to attach to here (see DESIGN.md).
package tracelog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/elmattic/psyche-sub000/interpreter"
	"github.com/elmattic/psyche-sub000/opcodes"
)

// StepTracer logs one line per CaptureState call. It implements
// interpreter.Tracer.
type StepTracer struct {
	log   *logrus.Logger
	steps uint64
}

// New returns a StepTracer writing to w at the given logrus level.
// Passing a nil w defaults to os.Stdout.
func New(w io.Writer, level logrus.Level) *StepTracer {
	if w == nil {
		w = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		DisableColors:   true,
		FullTimestamp:   false,
		DisableSorting:  true,
	})
	return &StepTracer{log: l}
}

// CaptureState implements interpreter.Tracer. On err == nil it logs
// the opcode about to execute at pc with the gas remaining before and
// the cost already charged for it; on err != nil it logs the fault at
// Error level instead, since that's the line an operator actually
// wants surfaced when a run aborts mid-block.
func (s *StepTracer) CaptureState(pc uint64, op opcodes.OpCode, gas, cost uint64, scope *interpreter.ScopeContext, err error) {
	s.steps++
	fields := logrus.Fields{
		"step": s.steps,
		"pc":   pc,
		"op":   op.String(),
		"gas":  gas,
		"cost": cost,
	}
	if scope != nil && scope.Stack != nil {
		fields["stackLen"] = scope.Stack.Len()
	}
	entry := s.log.WithFields(fields)
	if err != nil {
		entry.WithError(err).Error("step fault")
		return
	}
	entry.Debug("step")
}

// Steps returns the number of CaptureState calls observed so far.
func (s *StepTracer) Steps() uint64 {
	return s.steps
}
