package migration

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// sentinelTrigger is created by the last step, so its presence means every step has run.
const sentinelTrigger = "trg_profiles_document_immutable"

const sentinelQuery = "SELECT EXISTS (SELECT 1 FROM pg_trigger WHERE tgname = '" + sentinelTrigger + "')"

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_table_profiles",
		SQL: `CREATE TABLE IF NOT EXISTS profiles (
  id             UUID        PRIMARY KEY,
  sender_email   TEXT        NOT NULL,
  message        TEXT        NOT NULL DEFAULT '',
  document_kind  TEXT        NOT NULL CHECK (document_kind IN ('public_url', 'storage_object')),
  document_url   TEXT        NOT NULL DEFAULT '',
  storage_key    TEXT        NOT NULL DEFAULT '',
  access_policy  TEXT        NOT NULL DEFAULT '',
  filename       TEXT        NOT NULL DEFAULT '',
  content_type   TEXT        NOT NULL DEFAULT '',
  size           BIGINT      NOT NULL DEFAULT 0 CHECK (size >= 0),
  created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
  CHECK (
    (document_kind = 'public_url' AND document_url <> '') OR
    (document_kind = 'storage_object' AND storage_key <> '' AND access_policy IN ('public-read', 'private'))
  )
);`,
	},
	{
		Name: "create_table_profile_deliveries",
		SQL: `CREATE TABLE IF NOT EXISTS profile_deliveries (
  seq             BIGSERIAL   PRIMARY KEY,
  id              UUID        NOT NULL UNIQUE,
  profile_id      UUID        NOT NULL REFERENCES profiles (id),
  recipient_email TEXT        NOT NULL,
  mode            TEXT        NOT NULL,
  sent_at         TIMESTAMPTZ NOT NULL
);`,
	},
	{
		Name: "create_index_profiles_created_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_profiles_created_at ON profiles (created_at DESC, id DESC);`,
	},
	{
		Name: "create_index_profile_deliveries_profile_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_profile_deliveries_profile_id ON profile_deliveries (profile_id, seq);`,
	},
	{
		Name: "forbid_profile_document_update",
		SQL: `CREATE OR REPLACE FUNCTION forbid_document_update() RETURNS trigger AS $$
BEGIN
  IF NEW.document_kind IS DISTINCT FROM OLD.document_kind
     OR NEW.document_url IS DISTINCT FROM OLD.document_url
     OR NEW.storage_key IS DISTINCT FROM OLD.storage_key
     OR NEW.access_policy IS DISTINCT FROM OLD.access_policy THEN
    RAISE EXCEPTION 'profile document reference is immutable';
  END IF;
  RETURN NEW;
END;
$$ LANGUAGE plpgsql;
DROP TRIGGER IF EXISTS trg_profiles_document_immutable ON profiles;
CREATE TRIGGER trg_profiles_document_immutable BEFORE UPDATE ON profiles
  FOR EACH ROW EXECUTE FUNCTION forbid_document_update();`,
	},
}

// EnsureMigrated runs the migration steps unless the sentinel trigger already exists. Every step is
// idempotent, so a run interrupted part way is completed by the next one.
func EnsureMigrated(ctx context.Context, db *sql.DB, log zerolog.Logger, dbHost string) error {
	start := time.Now()
	log = log.With().Str("component", "database").Str("db_host", dbHost).Logger()

	log.Info().Str("event", "db_migration_check").Str("status", "starting").Send()

	var exists bool
	if err := db.QueryRowContext(ctx, sentinelQuery).Scan(&exists); err != nil {
		log.Error().
			Str("event", "db_migration_failed").
			Str("status", "error").
			Err(err).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("failed to check sentinel trigger")
		return fmt.Errorf("failed to check sentinel trigger: %w", err)
	}

	if exists {
		log.Info().
			Str("event", "db_migration_skip").
			Str("status", "success").
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("schema already exists, skipping migration")
		return nil
	}

	log.Info().Str("event", "db_migration_start").Str("status", "in_progress").Send()

	for _, step := range steps {
		stepStart := time.Now()
		if _, err := db.ExecContext(ctx, step.SQL); err != nil {
			log.Error().
				Str("event", "db_migration_failed").
				Str("status", "error").
				Str("migration_step", step.Name).
				Err(err).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
				Send()
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		log.Info().
			Str("event", "db_migration_step").
			Str("status", "success").
			Str("migration_step", step.Name).
			Int64("step_duration_ms", time.Since(stepStart).Milliseconds()).
			Send()
	}

	log.Info().
		Str("event", "db_migration_success").
		Str("status", "success").
		Int64("duration_ms", time.Since(start).Milliseconds()).
		Send()

	return nil
}
