// Theory-layer mirror over Neo4j: an optional, additive projection of
// a committed TheoryLayer's facts as a property graph, so external
// tooling can browse a Session's committed world with Cypher. Adapted
// from the teacher's internal/knowledge/neo4j_client.go (driver
// construction, connectivity verification, managed write
// transactions).
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"unified-thinking/internal/types"
)

// Neo4jMirrorConfig configures a Neo4jTheoryMirror connection.
type Neo4jMirrorConfig struct {
	URI      string
	Username string
	Password string
	Database string
	Timeout  time.Duration
}

// Neo4jTheoryMirror projects committed facts into Neo4j as
// (:Entity)-[:REL {operator}]->(:Entity) edges, one write transaction
// per commit.
type Neo4jTheoryMirror struct {
	driver   neo4j.DriverWithContext
	database string
	timeout  time.Duration
}

// NewNeo4jTheoryMirror dials and verifies connectivity to cfg.URI.
func NewNeo4jTheoryMirror(cfg Neo4jMirrorConfig) (*Neo4jTheoryMirror, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	return &Neo4jTheoryMirror{driver: driver, database: cfg.Database, timeout: cfg.Timeout}, nil
}

// Close releases the driver's connection pool.
func (m *Neo4jTheoryMirror) Close(ctx context.Context) error {
	return m.driver.Close(ctx)
}

// MirrorCommit writes every binary, asserted fact in facts as a graph
// edge; higher-arity and negated facts are skipped (they have no
// natural two-node projection).
func (m *Neo4jTheoryMirror) MirrorCommit(ctx context.Context, facts []*types.Fact) error {
	session := m.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: m.database, AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, f := range facts {
			if len(f.Args) != 2 || f.Polarity != types.Asserted {
				continue
			}
			_, err := tx.Run(ctx,
				`MERGE (a:Entity {name: $subject})
				 MERGE (b:Entity {name: $object})
				 MERGE (a)-[:REL {operator: $operator}]->(b)`,
				map[string]any{
					"subject":  f.Args[0].Text(),
					"object":   f.Args[1].Text(),
					"operator": string(f.Operator),
				})
			if err != nil {
				return nil, fmt.Errorf("failed to mirror fact %s: %w", f.Key(), err)
			}
		}
		return nil, nil
	})
	return err
}
