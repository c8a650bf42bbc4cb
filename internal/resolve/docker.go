package resolve

import (
	"bufio"
	"bytes"
	"context"
	"strconv"
	"strings"

	"github.com/Iron-Ham/devtop/internal/logging"
	"github.com/Iron-Ham/devtop/internal/shell"
)

// Container is one running container as reported by the runtime.
type Container struct {
	Name  string
	Image string
	// Ports is the raw published-ports field, e.g.
	// "0.0.0.0:5432->5432/tcp, :::5432->5432/tcp".
	Ports string
}

// ContainerLookup lists running containers in one query.
type ContainerLookup interface {
	ListContainers(ctx context.Context) ([]Container, error)
}

// dockerPSFormat selects tab-separated name, image and ports columns.
const dockerPSFormat = "{{.Names}}\t{{.Image}}\t{{.Ports}}"

// DockerContainerLookup lists containers with `docker ps`.
type DockerContainerLookup struct {
	Runner shell.Runner
	// Path is the docker binary. Empty means "docker" from PATH.
	Path string
	// Logger receives parse skips at debug level. May be nil.
	Logger *logging.Logger
}

// NewDockerContainerLookup creates a DockerContainerLookup.
func NewDockerContainerLookup(runner shell.Runner, path string) *DockerContainerLookup {
	return &DockerContainerLookup{Runner: runner, Path: path}
}

// ListContainers implements ContainerLookup.
func (d *DockerContainerLookup) ListContainers(ctx context.Context) ([]Container, error) {
	bin := d.Path
	if bin == "" {
		bin = "docker"
	}
	out, err := d.Runner.Run(ctx, bin, "ps", "--format", dockerPSFormat)
	if err != nil {
		return nil, err
	}
	containers, perr := ParseDockerPS(out)
	shell.LogSkipped(d.Logger, perr)
	return containers, nil
}

// ParseDockerPS parses `docker ps` output produced with dockerPSFormat.
// Lines without at least a name and an image are skipped and reported
// through the returned error, which wraps errors.ErrParse. When a container
// has several names only the first is kept.
func ParseDockerPS(out []byte) ([]Container, error) {
	var containers []Container
	skips := shell.NewSkipTracker("docker")
	lineNo := 0

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		fields := strings.Split(raw, "\t")
		if len(fields) < 2 {
			skips.Skip(lineNo, raw)
			continue
		}
		name, _, _ := strings.Cut(strings.TrimSpace(fields[0]), ",")
		image := strings.TrimSpace(fields[1])
		if name == "" || image == "" {
			skips.Skip(lineNo, raw)
			continue
		}
		c := Container{Name: name, Image: image}
		if len(fields) > 2 {
			c.Ports = strings.TrimSpace(fields[2])
		}
		containers = append(containers, c)
	}
	return containers, skips.Err()
}

// MatchPorts maps each requested port to the first container whose ports
// field contains ":<port>->".
//
// This is a substring match on the raw field. It does not parse port
// ranges ("0.0.0.0:8000-8002->8000-8002/tcp" matches only 8000 if at all)
// and a host port that is a suffix of another address component could
// false-positive. Known limitation; kept as-is.
func MatchPorts(containers []Container, ports []int) map[int]Container {
	result := make(map[int]Container)
	for _, port := range ports {
		if port <= 0 {
			continue
		}
		if _, done := result[port]; done {
			continue
		}
		needle := ":" + strconv.Itoa(port) + "->"
		for _, c := range containers {
			if strings.Contains(c.Ports, needle) {
				result[port] = c
				break
			}
		}
	}
	return result
}
