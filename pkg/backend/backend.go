// Copyright 2024 The Schedbench Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backend reads job creation records from the control-plane
// database. Only reachable from inside the control-plane network.
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"strings"
	"time"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"

	"github.com/schedbench/schedbench/pkg/config"
	"github.com/schedbench/schedbench/pkg/measurements"
)

// Client queries the control-plane jobs table
type Client struct {
	db  *sql.DB
	cfg config.DatabaseConfig
}

// NewClient opens and verifies the database connection. Staging access
// authenticates with a short-lived RDS IAM token.
func NewClient(ctx context.Context, cfg config.DatabaseConfig) (*Client, error) {
	password := cfg.Password
	if !cfg.SelfHosted {
		var err error
		if password, err = generateAuthToken(ctx, cfg); err != nil {
			return nil, err
		}
	}
	connStr := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		cfg.Host, cfg.Port, cfg.Name, cfg.User, password)
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database connection: %s", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database, check your vpn connection and credentials: %s", err)
	}
	return &Client{db: db, cfg: cfg}, nil
}

// Close releases the database connection
func (c *Client) Close() error {
	return c.db.Close()
}

// FetchJobRecords returns the creation records of the project's training
// jobs that still exist in the cluster. Distributed workloads are stored
// with a kind other than RunaiJob.
func (c *Client) FetchJobRecords(ctx context.Context, workloadType config.WorkloadType, project string) ([]measurements.BackendRecord, error) {
	kindOperator := "="
	if workloadType == config.DistributedWorkload {
		kindOperator = "!="
	}
	query := fmt.Sprintf(`
		SELECT name, time_created
		FROM jobs
		WHERE project = $1
		AND type = 'Train'
		AND kind %s 'RunaiJob'
		AND exists_in_cluster = 'true'`, kindOperator)
	args := []any{project}
	if !c.cfg.SelfHosted {
		query += "\n\t\tAND cluster_uuid = $2"
		args = append(args, c.cfg.ClusterUUID)
	}

	log.Info("Getting backend jobs")
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("database error: %s", err)
	}
	defer rows.Close()

	var records []measurements.BackendRecord
	for rows.Next() {
		var name string
		var timeCreatedMillis int64
		if err := rows.Scan(&name, &timeCreatedMillis); err != nil {
			return records, fmt.Errorf("database error: %s", err)
		}
		records = append(records, measurements.BackendRecord{
			JobName:          name,
			ProjectName:      project,
			JobNamespace:     config.NamespacePrefix + project,
			CreatedTimestamp: time.UnixMilli(timeCreatedMillis).UTC(),
		})
	}
	return records, rows.Err()
}

// generateAuthToken execs the aws CLI to mint an RDS IAM auth token
func generateAuthToken(ctx context.Context, cfg config.DatabaseConfig) (string, error) {
	cmd := exec.CommandContext(ctx, "aws", "rds", "generate-db-auth-token",
		"--hostname", cfg.Host,
		"--port", fmt.Sprint(cfg.Port),
		"--region", cfg.Region,
		"--username", cfg.User)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("error generating RDS auth token: %s", err)
	}
	return strings.TrimSpace(string(out)), nil
}
