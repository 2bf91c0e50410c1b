// Package cluster provisions and tears down the ephemeral analytical
// database environment an integration test runs against: an isolated network holding
// a coordination (keeper) node and a ClickHouse data node.
package cluster

import "fmt"

// Environment is one provisioned test cluster. It is immutable after
// creation; it is also the only state shared across harness calls, passed
// explicitly rather than held in a global registry.
type Environment struct {
	URL                 string `json:"url"`
	ContainerName       string `json:"container_name"`
	KeeperContainerName string `json:"keeper_container_name"`
	Network             string `json:"network"`
	DBName              string `json:"db_name"`
	User                string `json:"user"`
	Password            string `json:"password"`
	HTTPPort            int    `json:"http_port"`
	KeeperPort          int    `json:"keeper_port"`
}

const (
	containerPrefix = "moose-test-clickhouse-"

	// Host port bases. The data node gets basePort plus a random offset in
	// [0, portRange); the keeper gets basePort+10000 plus the same offset,
	// keeping the pairing deterministic per environment while avoiding
	// collisions with concurrently running environments.
	basePort         = 18123
	keeperPortSpread = 10000
	portRange        = 1000

	defaultUser     = "panda"
	defaultPassword = "pandapass"
)

func connectionURL(user, password string, port int, db string) string {
	return fmt.Sprintf("http://%s:%s@127.0.0.1:%d/%s", user, password, port, db)
}
