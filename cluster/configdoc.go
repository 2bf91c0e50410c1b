package cluster

import "fmt"

// Generated configuration documents are written through the node's
// entrypoint override: a heredoc drops the file in place, then control is
// handed to the image's real entrypoint.

func writeConfigScript(path, doc string) string {
	return fmt.Sprintf("mkdir -p $(dirname %s) && cat > %s <<'MOOSE_EOF'\n%s\nMOOSE_EOF\nexec /entrypoint.sh", path, path, doc)
}

// keeperConfig is a single-node keeper: listening on all interfaces, bounded
// session/operation timeouts, and the four-letter-word allowlist the health
// probe needs.
func keeperConfig() string {
	return fmt.Sprintf(`<clickhouse>
    <listen_host>0.0.0.0</listen_host>
    <keeper_server>
        <tcp_port>%d</tcp_port>
        <server_id>1</server_id>
        <log_storage_path>/var/lib/clickhouse-keeper/log</log_storage_path>
        <snapshot_storage_path>/var/lib/clickhouse-keeper/snapshots</snapshot_storage_path>
        <coordination_settings>
            <session_timeout_ms>30000</session_timeout_ms>
            <operation_timeout_ms>10000</operation_timeout_ms>
        </coordination_settings>
        <four_letter_word_white_list>ruok, srvr, mntr</four_letter_word_white_list>
        <raft_configuration>
            <server>
                <id>1</id>
                <hostname>localhost</hostname>
                <port>9234</port>
            </server>
        </raft_configuration>
    </keeper_server>
</clickhouse>`, keeperClientPort)
}

// clickhouseKeeperConfig points the data node at the keeper by its network
// alias and prefixes auxiliary KeeperMap state tables under a fixed path.
func clickhouseKeeperConfig() string {
	return fmt.Sprintf(`<clickhouse>
    <zookeeper>
        <node>
            <host>%s</host>
            <port>%d</port>
        </node>
    </zookeeper>
    <keeper_map_path_prefix>%s</keeper_map_path_prefix>
</clickhouse>`, keeperHTTPAlias, keeperClientPort, keeperStatePathPrefix)
}
