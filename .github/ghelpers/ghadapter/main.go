package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
)

// writeOutputs writes each top level field of a JSON object as a step output
// line. Output that is not a JSON object writes nothing.
func writeOutputs(w io.Writer, output []byte) error {
	var result map[string]interface{}
	if err := json.Unmarshal(output, &result); err != nil {
		return nil
	}

	keys := make([]string, 0, len(result))
	for key := range result {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if _, err := fmt.Fprintf(w, "%s=%v\n", key, result[key]); err != nil {
			return err
		}
	}
	return nil
}

// Runs a command such as `check -json`, exposes its JSON result as step
// outputs and exits with the command's exit code, so a failed check still
// publishes its score.
func main() {
	if len(os.Args) < 2 {
		os.Exit(1)
	}

	var args []string
	if len(os.Args) > 2 {
		args = os.Args[2:]
	}

	cmd := exec.Command(os.Args[1], args...)
	cmd.Stdin = os.Stdin
	cmd.Stderr = os.Stderr

	exitCode := 0
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		exitCode = exitErr.ExitCode()
	}
	_, _ = os.Stdout.Write(output)

	if githubOutput := os.Getenv("GITHUB_OUTPUT"); githubOutput != "" {
		f, err := os.OpenFile(githubOutput, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if err := writeOutputs(f, output); err != nil {
			fmt.Fprintln(os.Stderr, err)
			exitCode = 1
		}
		_ = f.Close()
	}

	os.Exit(exitCode)
}
