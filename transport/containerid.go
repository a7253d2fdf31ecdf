package transport

import (
	"bufio"
	"os"
	"regexp"
)

// cgroupLineRe matches the container ID out of a /proc/self/cgroup
// line, covering the common cgroup v1 formats (Docker's 64-hex-char ID
// and Kubernetes' pod-scoped "pod<uuid>/<container-id>" form).
var cgroupLineRe = regexp.MustCompile(`(?:^|/)(?:[a-f0-9]{64}|[a-f0-9]{8}(?:-[a-f0-9]{4}){4}\.scope)$`)

// DiscoverContainerID best-effort parses /proc/self/cgroup for the
// running container's ID. Returns "" (never an error) on any failure —
// per the container-id-discovery-failure error taxonomy, transport
// simply omits the header.
func DiscoverContainerID() string {
	f, err := os.Open("/proc/self/cgroup")
	if err != nil {
		return ""
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if id := extractContainerID(scanner.Text()); id != "" {
			return id
		}
	}
	return ""
}

func extractContainerID(line string) string {
	m := cgroupLineRe.FindString(line)
	if m == "" {
		return ""
	}
	// Strip a leading slash and trailing ".scope" if present.
	if len(m) > 0 && m[0] == '/' {
		m = m[1:]
	}
	const scopeSuffix = ".scope"
	if len(m) > len(scopeSuffix) && m[len(m)-len(scopeSuffix):] == scopeSuffix {
		m = m[:len(m)-len(scopeSuffix)]
	}
	return m
}
