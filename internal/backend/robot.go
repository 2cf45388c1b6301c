package backend

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"aistudio/internal/logging"
)

// RobotCommand is one of the fixed commands the robot car firmware accepts.
type RobotCommand string

const (
	RobotForward RobotCommand = "go"
	RobotBack    RobotCommand = "back"
	RobotLeft    RobotCommand = "left"
	RobotRight   RobotCommand = "right"
	RobotStop    RobotCommand = "stop"
	RobotLEDOn   RobotCommand = "ledon"
	RobotLEDOff  RobotCommand = "ledoff"
)

// RobotCommands lists every accepted command in display order.
var RobotCommands = []RobotCommand{RobotForward, RobotBack, RobotLeft, RobotRight, RobotStop, RobotLEDOn, RobotLEDOff}

// ParseRobotCommand validates s against RobotCommands.
func ParseRobotCommand(s string) (RobotCommand, error) {
	cmd := RobotCommand(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range RobotCommands {
		if cmd == known {
			return cmd, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
}

// RobotClient drives the robot car over its plain HTTP control surface:
// GET http://<address>/<command>.
type RobotClient struct {
	address string
	http    *http.Client
}

// NewRobotClient targets address (host or host:port).
func NewRobotClient(address string, timeout time.Duration) *RobotClient {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RobotClient{
		address: normalizeRobotAddress(address),
		http:    &http.Client{Timeout: timeout},
	}
}

func normalizeRobotAddress(address string) string {
	address = strings.TrimSpace(address)
	address = strings.TrimPrefix(address, "http://")
	return strings.TrimRight(address, "/")
}

// Address returns the robot host.
func (r *RobotClient) Address() string {
	return r.address
}

// StreamURL is the camera stream served on port 81.
func (r *RobotClient) StreamURL() string {
	host := r.address
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "http://" + host + ":81/stream"
}

// Send issues one command.
func (r *RobotClient) Send(ctx context.Context, cmd RobotCommand) error {
	if _, err := ParseRobotCommand(string(cmd)); err != nil {
		return err
	}
	if r.address == "" {
		return fmt.Errorf("%w: no robot address configured", ErrTransport)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+r.address+"/"+string(cmd), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		logging.ToolsWarn("Robot command %s failed: %v", cmd, err)
		return fmt.Errorf("%w: robot %s: %v", ErrTransport, cmd, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode}
	}
	logging.ToolsDebug("Robot command %s sent", cmd)
	return nil
}
