package dockerexec

import "sort"

// Env and port maps are emitted in sorted order so generated docker
// invocations are deterministic for a given option set.

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func sortedPorts(m map[int]int) []int {
	ports := make([]int, 0, len(m))
	for port := range m {
		ports = append(ports, port)
	}
	sort.Ints(ports)
	return ports
}
