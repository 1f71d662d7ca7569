package dcontext

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestVersionContext(t *testing.T) {
	ctx := context.Background()

	if GetVersion(ctx) != "" {
		t.Fatal("context should not yet have a version")
	}

	expected := "2.1-whatever"
	ctx = WithVersion(ctx, expected)
	version := GetVersion(ctx)

	if version != expected {
		t.Fatalf("version was not set: %q != %q", version, expected)
	}
}

func TestMakefileContext(t *testing.T) {
	ctx := WithMakefile(context.Background(), "lib/Makefile.am")
	if got := GetMakefile(ctx); got != "lib/Makefile.am" {
		t.Fatalf("makefile was not set: %q", got)
	}

	entry, ok := GetLogger(ctx).(*logrus.Entry)
	if !ok {
		t.Fatalf("unexpected logger type %T", GetLogger(ctx))
	}
	if entry.Data["makefile"] != "lib/Makefile.am" {
		t.Fatalf("logger is missing the makefile field: %v", entry.Data)
	}
}

func TestGetLoggerWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.Out = &buf
	logger.Formatter = &logrus.TextFormatter{DisableTimestamp: true}

	ctx := WithLogger(context.Background(), logrus.NewEntry(logger))
	GetLoggerWithField(ctx, "file", "Makefile.in").Info("written")

	if !bytes.Contains(buf.Bytes(), []byte("file=Makefile.in")) {
		t.Fatalf("expected field in output, got %q", buf.String())
	}
}

func TestWithValues(t *testing.T) {
	ctx := WithValues(context.Background(), map[string]any{"environment": "test"})
	if GetStringValue(ctx, "environment") != "test" {
		t.Fatal("value was not found through the map context")
	}
	if GetStringValue(ctx, "missing") != "" {
		t.Fatal("unexpected value for missing key")
	}
}
