package publish

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"reelsmith/internal/services"
)

// Tunnel exposes a local port on a public https URL.
type Tunnel interface {
	Open(ctx context.Context, port int) (string, error)
	Close() error
}

// StaticURL is a Tunnel for hosts that are already reachable.
type StaticURL string

func (u StaticURL) Open(context.Context, int) (string, error) {
	return strings.TrimRight(string(u), "/"), nil
}

func (StaticURL) Close() error { return nil }

var ngrokURLPattern = regexp.MustCompile(`url=(https://\S+)`)

// ParseNgrokURL extracts the public URL from an ngrok log line.
func ParseNgrokURL(line string) (string, bool) {
	match := ngrokURLPattern.FindStringSubmatch(line)
	if match == nil {
		return "", false
	}
	return strings.Trim(match[1], `"`), true
}

// Ngrok runs `ngrok http <port> --log stdout` and reads the tunnel URL from
// its log.
type Ngrok struct {
	Binary       string
	StartTimeout time.Duration

	cmd *exec.Cmd
}

// NewNgrok returns a tunnel backed by binary (default "ngrok").
func NewNgrok(binary string) *Ngrok {
	if strings.TrimSpace(binary) == "" {
		binary = "ngrok"
	}
	return &Ngrok{Binary: binary, StartTimeout: 30 * time.Second}
}

// Open starts ngrok and waits for the https URL.
func (n *Ngrok) Open(ctx context.Context, port int) (string, error) {
	cmd := exec.Command(n.Binary, "http", strconv.Itoa(port), "--log", "stdout") //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", services.Wrap(services.ErrIO, "publish", "tunnel", "ngrok stdout", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "publish", "tunnel", "start ngrok", err)
	}
	n.cmd = cmd

	found := make(chan string, 1)
	go scanForURL(stdout, found)

	timer := time.NewTimer(n.StartTimeout)
	defer timer.Stop()
	select {
	case url, ok := <-found:
		if ok {
			return url, nil
		}
		_ = n.Close()
		return "", services.Wrap(services.ErrExternalTool, "publish", "tunnel", "ngrok exited without a public URL", nil)
	case <-timer.C:
		_ = n.Close()
		return "", services.Wrap(services.ErrTimeout, "publish", "tunnel", fmt.Sprintf("no ngrok URL after %s", n.StartTimeout), nil)
	case <-ctx.Done():
		_ = n.Close()
		return "", services.Wrap(services.ErrTimeout, "publish", "tunnel", "interrupted", ctx.Err())
	}
}

// scanForURL sends the first URL found and keeps draining so ngrok never
// blocks on a full pipe. found is closed if no URL appears.
func scanForURL(r io.Reader, found chan<- string) {
	scanner := bufio.NewScanner(r)
	sent := false
	for scanner.Scan() {
		if sent {
			continue
		}
		if url, ok := ParseNgrokURL(scanner.Text()); ok {
			found <- url
			sent = true
		}
	}
	if !sent {
		close(found)
	}
}

// Close stops ngrok.
func (n *Ngrok) Close() error {
	if n.cmd == nil || n.cmd.Process == nil {
		return nil
	}
	_ = n.cmd.Process.Kill()
	_ = n.cmd.Wait()
	n.cmd = nil
	return nil
}
