package notify

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permission is the user's notification consent.
type Permission int

const (
	PermissionDefault Permission = iota // Not yet decided
	PermissionGranted
	PermissionDenied
)

// String returns the lowercase permission name.
func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "default"
	}
}

// ParsePermission parses "granted", "denied" or "default"/"ask".
func ParsePermission(s string) (Permission, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "granted":
		return PermissionGranted, nil
	case "denied":
		return PermissionDenied, nil
	case "", "default", "ask":
		return PermissionDefault, nil
	}
	return PermissionDefault, fmt.Errorf("invalid permission %q", s)
}

// Permissions is the platform notification capability.
type Permissions interface {
	// State returns the current permission without prompting.
	State() Permission

	// Request prompts the user if the permission is undecided and returns
	// the resulting permission.
	Request(ctx context.Context) Permission
}

// staticPermissions is a fixed permission.
type staticPermissions struct {
	p Permission
}

// Static returns a Permissions that never changes and never prompts.
func Static(p Permission) Permissions {
	return staticPermissions{p: p}
}

func (s staticPermissions) State() Permission                  { return s.p }
func (s staticPermissions) Request(context.Context) Permission { return s.p }

// PromptPermissions asks once on a terminal and remembers the answer.
type PromptPermissions struct {
	in  *bufio.Reader
	out io.Writer

	mu    sync.Mutex
	state Permission
}

// NewPrompt creates a terminal prompt reading from in and writing to out.
func NewPrompt(in io.Reader, out io.Writer) *PromptPermissions {
	return &PromptPermissions{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// State returns the remembered answer.
func (p *PromptPermissions) State() Permission {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Request asks "y/N" if undecided. A cancelled context leaves the
// permission undecided.
func (p *PromptPermissions) Request(ctx context.Context) Permission {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != PermissionDefault {
		return p.state
	}

	fmt.Fprint(p.out, "Allow mailboard notifications? [y/N]: ")

	answer := make(chan string, 1)
	go func() {
		line, _ := p.in.ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return p.state
	case line := <-answer:
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			p.state = PermissionGranted
		default:
			p.state = PermissionDenied
		}
	}
	return p.state
}
