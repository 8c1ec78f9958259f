package graph

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/mkalnins/bryony/pkg/models"
	"github.com/mkalnins/bryony/pkg/tracing"
)

// Projector mirrors merged offices and their projects into the graph. The
// graph is a read-optimized projection; Postgres stays the source of truth.
type Projector struct {
	client *Client
	logger ectologger.Logger
}

// NewProjector creates a new graph projector
func NewProjector(client *Client, logger ectologger.Logger) *Projector {
	return &Projector{client: client, logger: logger}
}

// ProjectOffice MERGEs the office node keyed on (unique_id, tenant_id).
func (p *Projector) ProjectOffice(ctx context.Context, office models.Office) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectOffice")
	defer span.End()

	cypher := `
		MERGE (o:Office {unique_id: $unique_id, tenant_id: $tenant_id})
		SET o.name = $name,
			o.address = $address,
			o.place_id = $place_id,
			o.category = $category,
			o.data_version = $data_version
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"unique_id":    office.UniqueID,
			"tenant_id":    office.TenantID,
			"name":         office.Name,
			"address":      office.Address,
			"place_id":     office.PlaceID,
			"category":     office.Category,
			"data_version": office.Metadata.DataVersion,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"unique_id": office.UniqueID,
			"tenant_id": office.TenantID,
		}).Error("Failed to project office into graph")
		return fmt.Errorf("failed to project office: %w", err)
	}
	return nil
}

// ProjectAnalysis MERGEs a project node per merged project and links each
// one to its office. Projects are keyed by name within the office, matching
// how the merge engine identifies them.
func (p *Projector) ProjectAnalysis(ctx context.Context, tenantID, officeID string, doc models.AnalysisDocument) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.ProjectAnalysis")
	defer span.End()

	if len(doc.Projects) == 0 {
		return nil
	}

	batch := make([]map[string]any, len(doc.Projects))
	for i, project := range doc.Projects {
		batch[i] = map[string]any{
			"name":     project.Name,
			"location": project.Location,
			"use_case": project.UseCase,
			"status":   string(project.Status),
		}
	}

	cypher := `
		MATCH (o:Office {unique_id: $office_id, tenant_id: $tenant_id})
		UNWIND $batch AS props
		MERGE (p:Project {name: props.name, tenant_id: $tenant_id, office_id: $office_id})
		SET p.location = props.location,
			p.use_case = props.use_case,
			p.status = props.status
		MERGE (o)-[:HAS_PROJECT]->(p)
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"office_id": officeID,
			"tenant_id": tenantID,
			"batch":     batch,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"office_id": officeID,
			"tenant_id": tenantID,
		}).Error("Failed to project analysis into graph")
		return fmt.Errorf("failed to project analysis: %w", err)
	}
	return nil
}

// RemoveOffice detaches and deletes the office node and its projects.
func (p *Projector) RemoveOffice(ctx context.Context, tenantID, uniqueID string) error {
	if p == nil || p.client == nil {
		return nil
	}
	ctx, span := tracing.StartSpan(ctx, "graph.Projector.RemoveOffice")
	defer span.End()

	cypher := `
		MATCH (o:Office {unique_id: $unique_id, tenant_id: $tenant_id})
		OPTIONAL MATCH (o)-[:HAS_PROJECT]->(p:Project)
		DETACH DELETE o, p
	`

	_, err := p.client.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, map[string]any{
			"unique_id": uniqueID,
			"tenant_id": tenantID,
		})
		if err != nil {
			return nil, err
		}
		return result.Consume(ctx)
	})
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"unique_id": uniqueID,
			"tenant_id": tenantID,
		}).Error("Failed to remove office from graph")
		return fmt.Errorf("failed to remove office: %w", err)
	}
	return nil
}
