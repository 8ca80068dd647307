package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/GoCodeAlone/demoapp/cmd/demoapp/cmd"
)

func TestMainVersionFlag(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
	}()

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	os.Args = []string{"demoapp", "--version"}
	main()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)

	if exitCode != -1 {
		t.Errorf("unexpected exit with code %d", exitCode)
	}
	if !bytes.Contains(buf.Bytes(), []byte("Employee directory v")) {
		t.Errorf("version output missing, got %q", buf.String())
	}
}

func TestMainUnknownFlagExits(t *testing.T) {
	originalArgs := os.Args
	originalExit := cmd.OsExit
	originalStderr := os.Stderr
	defer func() {
		os.Args = originalArgs
		cmd.OsExit = originalExit
		os.Stderr = originalStderr
	}()

	exitCode := -1
	cmd.OsExit = func(code int) { exitCode = code }
	devNull, _ := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	os.Stderr = devNull
	defer devNull.Close()

	os.Args = []string{"demoapp", "--no-such-flag"}
	main()

	if exitCode != 1 {
		t.Errorf("expected exit code 1, got %d", exitCode)
	}
}
