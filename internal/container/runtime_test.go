// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
)

// mockExecutor records calls and returns configured responses.
type mockExecutor struct {
	availableBins map[string]bool // binary -> whether LookPath succeeds
	runnableCmds  map[string]bool // "bin arg1 arg2" -> whether RunSilent succeeds
	runPipedFunc  func(name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error
	lastArgs      []string
}

func (m *mockExecutor) LookPath(file string) (string, error) {
	if m.availableBins[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (m *mockExecutor) RunSilent(name string, args ...string) error {
	key := name + " " + strings.Join(args, " ")
	if m.runnableCmds[key] {
		return nil
	}
	return errors.New("command failed: " + key)
}

func (m *mockExecutor) RunPiped(_ context.Context, name string, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	m.lastArgs = args
	if m.runPipedFunc != nil {
		return m.runPipedFunc(name, args, stdin, stdout, stderr)
	}
	return nil
}

type exitErr int

func (e exitErr) Error() string { return "exit status" }
func (e exitErr) ExitCode() int { return int(e) }

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name     string
		exec     *mockExecutor
		wantName string
		wantErr  bool
	}{
		{
			name: "docker available",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true},
				runnableCmds:  map[string]bool{"docker info": true},
			},
			wantName: "docker",
		},
		{
			name: "podman fallback when docker missing",
			exec: &mockExecutor{
				availableBins: map[string]bool{"podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
		{
			name:    "neither available",
			exec:    &mockExecutor{},
			wantErr: true,
		},
		{
			name: "docker on PATH but info fails, podman works",
			exec: &mockExecutor{
				availableBins: map[string]bool{"docker": true, "podman": true},
				runnableCmds:  map[string]bool{"podman info": true},
			},
			wantName: "podman",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt, err := detectRuntime(tt.exec)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !strings.Contains(err.Error(), "no container runtime available") {
					t.Errorf("error should mention no runtime available, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rt.Name() != tt.wantName {
				t.Errorf("got runtime %q, want %q", rt.Name(), tt.wantName)
			}
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name    string
		mkRT    func(*mockExecutor) Runtime
		cmds    map[string]bool
		wantErr bool
	}{
		{
			name: "docker image exists",
			mkRT: func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			cmds: map[string]bool{"docker image inspect epubcheck:latest": true},
		},
		{
			name:    "docker image not found",
			mkRT:    func(e *mockExecutor) Runtime { return newDockerRuntime(e) },
			wantErr: true,
		},
		{
			name: "podman image exists",
			mkRT: func(e *mockExecutor) Runtime { return newPodmanRuntime(e) },
			cmds: map[string]bool{"podman image exists epubcheck:latest": true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := tt.mkRT(&mockExecutor{runnableCmds: tt.cmds})
			err := rt.ImageExists("epubcheck:latest")
			if tt.wantErr {
				if err == nil || !strings.Contains(err.Error(), "epubcheck:latest") {
					t.Fatalf("expected error naming the image, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRunArgs(t *testing.T) {
	tests := []struct {
		name string
		opts RunOptions
		want string
	}{
		{"bare", RunOptions{}, "run --rm img"},
		{"stdin", RunOptions{Stdin: strings.NewReader("x")}, "run --rm -i img"},
		{
			"mount and args",
			RunOptions{Mounts: []Mount{{Host: "/books", Container: "/data"}}, Args: []string{"/data/a.epub"}},
			"run --rm -v /books:/data:ro img /data/a.epub",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := strings.Join(runArgs("img", tt.opts), " "); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun(t *testing.T) {
	exec := &mockExecutor{runPipedFunc: func(name string, _ []string, stdin io.Reader, stdout, _ io.Writer) error {
		if name != "podman" {
			return errors.New("expected podman binary")
		}
		data, _ := io.ReadAll(stdin)
		_, _ = stdout.Write([]byte("echo: " + string(data)))
		return nil
	}}
	var out bytes.Buffer
	err := newPodmanRuntime(exec).Run(context.Background(), "tool:1", RunOptions{Stdin: strings.NewReader("hi"), Stdout: &out})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "echo: hi" {
		t.Errorf("got output %q", out.String())
	}

	failing := &mockExecutor{runPipedFunc: func(string, []string, io.Reader, io.Writer, io.Writer) error {
		return errors.New("container exited with code 1")
	}}
	if err := newDockerRuntime(failing).Run(context.Background(), "tool:1", RunOptions{}); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestEpubCheck(t *testing.T) {
	tests := []struct {
		name       string
		runErr     error
		output     string
		wantPassed bool
		wantMsgs   int
		wantErr    bool
	}{
		{
			name:       "clean book",
			output:     "Validating using EPUB version 3.3 rules.\nNo errors or warnings detected.\n",
			wantPassed: true,
		},
		{
			name:     "validation errors",
			runErr:   exitErr(1),
			output:   "ERROR(RSC-005): /data/book.epub/OEBPS/page001.xhtml(3,2): bad\nWARNING(OPF-085): odd\nCheck finished with errors\n",
			wantMsgs: 2,
		},
		{
			name:    "tool did not run",
			runErr:  errors.New("permission denied"),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &mockExecutor{
				runnableCmds: map[string]bool{"docker image inspect epubcheck:latest": true},
				runPipedFunc: func(_ string, _ []string, _ io.Reader, stdout, _ io.Writer) error {
					_, _ = stdout.Write([]byte(tt.output))
					return tt.runErr
				},
			}
			c := EpubCheck{Runtime: newDockerRuntime(exec), Image: "epubcheck:latest"}
			passed, msgs, err := c.Check(context.Background(), "/books/book.epub")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", passed, tt.wantPassed)
			}
			if len(msgs) != tt.wantMsgs {
				t.Errorf("got %d messages %v, want %d", len(msgs), msgs, tt.wantMsgs)
			}
			want := "run --rm -v /books:/data:ro epubcheck:latest /data/book.epub"
			if got := strings.Join(exec.lastArgs, " "); got != want {
				t.Errorf("args = %q, want %q", got, want)
			}
		})
	}
}

func TestEpubCheckMissingImage(t *testing.T) {
	c := EpubCheck{Runtime: newDockerRuntime(&mockExecutor{}), Image: "epubcheck:latest"}
	if _, _, err := c.Check(context.Background(), "/books/book.epub"); err == nil {
		t.Fatal("expected error for missing image")
	}
}
