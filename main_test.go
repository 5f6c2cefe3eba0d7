package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(f func()) string {
	var buf bytes.Buffer
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	done := make(chan bool)
	go func() {
		_, _ = io.Copy(&buf, r)
		done <- true
	}()

	f()
	_ = w.Close()
	os.Stdout = oldStdout
	<-done

	return buf.String()
}

func callMain() (int, string) {
	var exitCode int
	oldExit := exit
	defer func() { exit = oldExit }()
	exit = func(code int) {
		exitCode = code
		panic("exit")
	}

	output := captureOutput(func() {
		defer func() {
			if r := recover(); r != nil && r != "exit" {
				panic(r)
			}
		}()
		RealMain()
	})
	return exitCode, output
}

func TestRealMain(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	t.Setenv("DB_PATH", t.TempDir())

	tests := []struct {
		name           string
		args           []string
		expectedExit   int
		expectedOutput string
	}{
		{
			name:           "no arguments",
			args:           []string{"postwall"},
			expectedExit:   1,
			expectedOutput: "Usage: postwall <command>",
		},
		{
			name:           "help command",
			args:           []string{"postwall", "help"},
			expectedOutput: "Usage: postwall <command> [options]",
		},
		{
			name:           "version command",
			args:           []string{"postwall", "version"},
			expectedOutput: "postwall version " + CliVersion,
		},
		{
			name:           "unknown command",
			args:           []string{"postwall", "unknown"},
			expectedExit:   1,
			expectedOutput: "Unknown command: unknown",
		},
		{
			name:           "db help",
			args:           []string{"postwall", "db", "help"},
			expectedOutput: "Usage: postwall db <command>",
		},
		{
			name:           "db without subcommand",
			args:           []string{"postwall", "db"},
			expectedExit:   1,
			expectedOutput: "Usage: postwall db <command>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args

			exitCode, output := callMain()

			assert.Contains(t, output, tt.expectedOutput)
			assert.Equal(t, tt.expectedExit, exitCode)
		})
	}
}

func TestPrintHelp(t *testing.T) {
	output := captureOutput(printHelp)

	for _, cmd := range []string{"help", "version", "serve", "db", "init", "clean", "backup", "restore"} {
		assert.Contains(t, output, cmd)
	}
}
