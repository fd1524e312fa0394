package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNew_TextHandlerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Component: ComponentStorage, Output: &buf})

	l.Info("Expense saved", FieldExpenseID, "a1")
	l.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "component=storage") || !strings.Contains(out, "expense_id=a1") {
		t.Fatalf("unexpected output %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record should be filtered: %q", out)
	}
	if l.Component() != ComponentStorage {
		t.Fatalf("Component() = %q", l.Component())
	}
}

func TestLogger_OpJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, JSON: true, Output: &buf}).WithComponent(ComponentExpense)

	l.Op(context.Background(), OpDelete, errors.New("disk full"), FieldExpenseID, "x")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("invalid json %q: %v", buf.String(), err)
	}
	if rec["level"] != "ERROR" || rec[FieldOperation] != OpDelete || rec[FieldError] != "disk full" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec[FieldComponent] != ComponentExpense {
		t.Fatalf("component = %v", rec[FieldComponent])
	}
}

func TestLogFields(t *testing.T) {
	f := NewFields().
		WithOperation(OpCreate).
		WithExpense("a1", "2024-05-01", "food", 1250).
		WithError(nil).
		WithErrorType(ErrorTypeValidation)

	if _, ok := f[FieldError]; ok {
		t.Fatal("nil error should not be recorded")
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("ToSlice length %d for %d fields", len(f.ToSlice()), len(f))
	}
	if f[FieldAmountCents] != int64(1250) {
		t.Fatalf("amount = %v", f[FieldAmountCents])
	}
}
