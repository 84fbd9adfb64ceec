package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow version snapshots. Nodes and edges are stored as
			-- JSONB blobs: versions are immutable once written, so there
			-- is nothing to gain from normalizing them.
			CREATE TABLE workflow_versions (
				id UUID PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				version INTEGER NOT NULL CHECK (version >= 1),
				name VARCHAR(255) NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				metadata JSONB NOT NULL DEFAULT '{}',
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived', 'deprecated')),
				checksum_nodes VARCHAR(64) NOT NULL,
				checksum_edges VARCHAR(64) NOT NULL,
				checksum_full VARCHAR(64) NOT NULL,
				UNIQUE (workflow_id, version)
			);

			CREATE INDEX idx_workflow_versions_workflow_id ON workflow_versions(workflow_id);
			CREATE INDEX idx_workflow_versions_status ON workflow_versions(status);
			CREATE INDEX idx_workflow_versions_checksum_full ON workflow_versions(checksum_full);
		`,
		2: `
			-- Append-only audit trail.
			CREATE TABLE audit_events (
				event_id UUID PRIMARY KEY,
				event_type VARCHAR(100) NOT NULL,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
				user_id VARCHAR(255),
				session_id VARCHAR(255),
				resource VARCHAR(255) NOT NULL,
				action VARCHAR(255) NOT NULL,
				details JSONB NOT NULL DEFAULT '{}',
				outcome VARCHAR(50) NOT NULL CHECK (outcome IN ('success', 'failure', 'partial')),
				risk VARCHAR(50) NOT NULL CHECK (risk IN ('low', 'medium', 'high', 'critical'))
			);

			CREATE INDEX idx_audit_events_user_id ON audit_events(user_id);
			CREATE INDEX idx_audit_events_event_type ON audit_events(event_type);
			CREATE INDEX idx_audit_events_timestamp ON audit_events(timestamp);
		`,
	}
}
