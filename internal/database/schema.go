package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"ember/internal/config"
	"ember/internal/middleware"

	"gorm.io/gorm"
)

// SchemaMode selects how the schema is brought up to date (DB_SCHEMA_MODE).
type SchemaMode string

const (
	// SchemaModeHybrid runs SQL migrations, then AutoMigrate outside
	// production-like environments.
	SchemaModeHybrid SchemaMode = "hybrid"
	// SchemaModeSQL runs the embedded SQL migrations only.
	SchemaModeSQL SchemaMode = "sql"
	// SchemaModeAuto runs AutoMigrate only.
	SchemaModeAuto SchemaMode = "auto"
)

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// ErrDestructiveAutoMigrate is returned when auto mode is requested for a
// production-like environment without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE.
var ErrDestructiveAutoMigrate = errors.New("auto schema mode needs DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE in this environment")

// ParseSchemaMode normalizes raw; empty means hybrid.
func ParseSchemaMode(raw string) (SchemaMode, error) {
	switch mode := SchemaMode(strings.ToLower(strings.TrimSpace(raw))); mode {
	case "":
		return SchemaModeHybrid, nil
	case SchemaModeHybrid, SchemaModeSQL, SchemaModeAuto:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported DB_SCHEMA_MODE %q", raw)
	}
}

// SchemaPlan is what ApplySchema will do for a configuration.
type SchemaPlan struct {
	Mode     SchemaMode
	ProdLike bool
	RunSQL   bool
	RunAuto  bool
}

// PlanSchema resolves the schema steps for cfg.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode, err := ParseSchemaMode(cfg.DBSchemaMode)
	if err != nil {
		return SchemaPlan{}, err
	}
	plan := SchemaPlan{
		Mode:     mode,
		ProdLike: slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env))),
	}

	switch mode {
	case SchemaModeSQL:
		plan.RunSQL = true
	case SchemaModeAuto:
		if plan.ProdLike && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("%w (APP_ENV=%s)", ErrDestructiveAutoMigrate, cfg.Env)
		}
		plan.RunAuto = true
	case SchemaModeHybrid:
		plan.RunSQL = true
		plan.RunAuto = !plan.ProdLike
	}
	return plan, nil
}

// AutoMigrate creates or updates the tables of PersistentModels.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the schema up to date according to cfg.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.RunAuto {
		return nil
	}

	if plan.ProdLike {
		middleware.Logger.Warn("AutoMigrate enabled in a production-like environment",
			slog.String("env", cfg.Env))
	}
	middleware.Logger.Info("running AutoMigrate", slog.String("mode", string(plan.Mode)), slog.String("env", cfg.Env))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// SchemaStatus is the report printed by `migrate status`.
type SchemaStatus struct {
	SchemaPlan
	Environment       string
	AppliedVersions   []int
	PendingMigrations []Migration
	// MissingTables lists persistent tables that do not exist yet.
	MissingTables []string
}

// GetSchemaStatus reports the plan for cfg, the migration state and which
// of the users, swipes, matches and messages tables are missing.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan, Environment: cfg.Env}

	migrator := db.WithContext(ctx).Migrator()
	for _, model := range PersistentModels() {
		if named, ok := model.(interface{ TableName() string }); ok && !migrator.HasTable(model) {
			status.MissingTables = append(status.MissingTables, named.TableName())
		}
	}

	if plan.RunSQL {
		applied, err := NewMigrationStore(db).GetAppliedMigrations(ctx)
		if err != nil {
			return nil, err
		}
		status.AppliedVersions = applied
		status.PendingMigrations = pendingMigrations(applied, GetMigrations())
	}
	return status, nil
}

func pendingMigrations(applied []int, registered []Migration) []Migration {
	var pending []Migration
	for _, m := range registered {
		if !slices.Contains(applied, m.Version) {
			pending = append(pending, m)
		}
	}
	return pending
}
