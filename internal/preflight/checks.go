package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"moversync/internal/services"
)

const managerCheckTimeout = 5 * time.Second

// Pinger is the connectivity surface of a library manager client.
type Pinger interface {
	Name() string
	Configured() bool
	TestConnection(ctx context.Context) error
}

// CheckManager verifies manager connectivity and authentication. An
// unconfigured manager is reported as an optional skip.
func CheckManager(ctx context.Context, m Pinger) Result {
	name := displayName(m.Name())
	if !m.Configured() {
		return Result{Name: name, Optional: true, Detail: "Not configured"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, managerCheckTimeout)
	defer cancel()

	if err := m.TestConnection(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeManagerError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.W_OK|unix.X_OK, "read/write ok")
}

// CheckReadableDirectory verifies that the directory exists and can be listed.
func CheckReadableDirectory(name, path string) Result {
	return checkDirectory(name, path, unix.R_OK|unix.X_OK, "readable")
}

func checkDirectory(name, path string, mode uint32, okDetail string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, okDetail)}
}

// CheckCacheList verifies the cache list file is readable. A missing file is
// an optional failure since the builder tolerates it.
func CheckCacheList(path string) Result {
	const name = "Cache list"
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Optional: true, Detail: fmt.Sprintf("%s (not present yet)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", path)}
}

func summarizeManagerError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || services.IsTimeout(err) {
		return "connection timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "connection timed out"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "missing url or api key"
	}
	return err.Error()
}

func displayName(name string) string {
	switch strings.ToLower(name) {
	case "radarr":
		return "Radarr"
	case "sonarr":
		return "Sonarr"
	default:
		return name
	}
}
