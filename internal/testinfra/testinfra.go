package testinfra

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var Pool *pgxpool.Pool

func init() {
	Pool = SetupDB()
}

func SetupDB() *pgxpool.Pool {

	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:17.2-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_PASSWORD": "password",
			"POSTGRES_USER":     "postgres",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections"),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	if err != nil {
		log.Panicf("start postgres: %v", err)
	}

	pgHostPort, err := pgC.Endpoint(ctx, "")
	if err != nil {
		log.Panicf("postgres endpoint: %v", err)
	}
	pgDSN := fmt.Sprintf("postgres://postgres:password@%s/testdb?sslmode=disable", pgHostPort)

	pool, err := pgxpool.New(ctx, pgDSN)
	if err != nil {
		log.Panicf("pgxpool connect: %v", err)
	}

	ok := false
	for i := 0; i < 20; i++ {
		slog.Info("ping db", "try", i)
		ctxPing, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
		err = pool.Ping(ctxPing)
		cancel()
		if err == nil {
			ok = true
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	if !ok {
		log.Panic("db did not respond after 20 attempts")
	}

	_, err = pool.Exec(ctx, `
		CREATE SCHEMA IF NOT EXISTS platform;
		CREATE TABLE IF NOT EXISTS platform.themes (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			"key" VARCHAR(80) UNIQUE NOT NULL,
			"name" VARCHAR(120) NOT NULL,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			default_payload_json JSONB NOT NULL DEFAULT '{}'
		);
		CREATE TABLE IF NOT EXISTS platform.theme_manifests (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			theme_id BIGINT NOT NULL REFERENCES platform.themes(id),
			manifest_json JSONB NOT NULL,
			checksum VARCHAR(64) NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.sites (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			tenant_id VARCHAR(80) NOT NULL,
			theme_id BIGINT NOT NULL REFERENCES platform.themes(id),
			slug VARCHAR(80) UNIQUE NOT NULL,
			contact_email VARCHAR(255),
			published_version_id BIGINT,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.site_versions (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			site_id BIGINT NOT NULL REFERENCES platform.sites(id),
			"version" INT NOT NULL,
			status VARCHAR(20) NOT NULL,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (site_id, "version")
		);
		CREATE TABLE IF NOT EXISTS platform.site_version_payloads (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			site_version_id BIGINT UNIQUE NOT NULL REFERENCES platform.site_versions(id),
			payload_json JSONB NOT NULL,
			checksum VARCHAR(64) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.site_domains (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			site_id BIGINT NOT NULL REFERENCES platform.sites(id),
			host VARCHAR(255) UNIQUE NOT NULL,
			"type" VARCHAR(40) NOT NULL,
			status VARCHAR(40) NOT NULL,
			verification_token VARCHAR(80),
			verified_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.preview_sessions (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			site_id BIGINT NOT NULL REFERENCES platform.sites(id),
			site_version_id BIGINT NOT NULL REFERENCES platform.site_versions(id),
			token VARCHAR(80) UNIQUE NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_by UUID,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.mails (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			"type" VARCHAR(40) NOT NULL,
			recipients TEXT NOT NULL,
			subject VARCHAR(255) NOT NULL,
			content TEXT NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS platform.outbox (
			id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
			event VARCHAR(80) NOT NULL,
			status INT NOT NULL,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
	`)
	if err != nil {
		log.Panicf("create tables: %v", err)
	}

	return pool
}

// SeedTheme inserts an active theme with a manifest and returns its id.
func SeedTheme(pool *pgxpool.Pool, key string, manifestJSON, defaultPayloadJSON string) uint64 {
	ctx := context.Background()
	var themeID uint64
	err := pool.QueryRow(ctx, `INSERT INTO platform.themes("key", "name", is_active, default_payload_json)
		VALUES ($1,$2,TRUE,$3::jsonb)
		ON CONFLICT ("key") DO UPDATE SET default_payload_json = EXCLUDED.default_payload_json
		RETURNING id`, key, key, defaultPayloadJSON).Scan(&themeID)
	if err != nil {
		log.Panicf("seed theme: %v", err)
	}
	_, err = pool.Exec(ctx, `INSERT INTO platform.theme_manifests(theme_id, manifest_json, checksum)
		VALUES ($1,$2::jsonb,'seed')`, themeID, manifestJSON)
	if err != nil {
		log.Panicf("seed theme manifest: %v", err)
	}
	return themeID
}
