// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

const epubcheckMount = "/data"

// EpubCheck runs an epubcheck image against a container on the host
// filesystem.
type EpubCheck struct {
	Runtime Runtime
	Image   string
}

// exitCoder matches *exec.ExitError.
type exitCoder interface {
	ExitCode() int
}

// Check validates the EPUB at path. A non-zero exit from epubcheck means the
// book failed validation and is reported through passed and messages; err is
// reserved for failures to run the tool at all.
func (c EpubCheck) Check(ctx context.Context, path string) (passed bool, messages []string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	if err := c.Runtime.ImageExists(c.Image); err != nil {
		return false, nil, err
	}

	var out bytes.Buffer
	runErr := c.Runtime.Run(ctx, c.Image, RunOptions{
		Mounts: []Mount{{Host: filepath.Dir(abs), Container: epubcheckMount}},
		Args:   []string{epubcheckMount + "/" + filepath.Base(abs)},
		Stdout: &out,
		Stderr: &out,
	})

	messages = findings(out.Bytes())
	if runErr == nil {
		return true, messages, nil
	}
	var ec exitCoder
	if errors.As(runErr, &ec) && ec.ExitCode() > 0 {
		return false, messages, nil
	}
	return false, messages, runErr
}

// findings keeps the ERROR, FATAL and WARNING lines of epubcheck output.
func findings(out []byte) []string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		for _, p := range []string{"FATAL", "ERROR", "WARNING"} {
			if strings.HasPrefix(line, p) {
				lines = append(lines, line)
				break
			}
		}
	}
	return lines
}
