package models

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

/*
Model generation and column report.

GENERATE_MODELS=true migrates the schema, prints the column mismatch report and writes typed query
helpers for every model to ./generated using gorm/gen.

GENERATE_COLUMN_REPORT=true only prints the report: for every table, the columns that exist in the
database but have no field on the Go model (usually left over from a manual migration).
*/

// AllModels lists every persisted model, in dependency order
func AllModels() []any {
	return []any{
		&Project{},
		&User{},
		&ProjectAdmin{},
		&BlogPost{},
	}
}

// Migrate creates or updates the tables of every model
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}

func GenerateModels(db *gorm.DB, outPath string) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not reachable: %w", err)
	}

	db = db.Session(&gorm.Session{
		Logger:                 db.Logger.LogMode(logger.Info),
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})

	log.Info().Msg("migrating models")
	if err := Migrate(db); err != nil {
		return fmt.Errorf("migrate models: %w", err)
	}

	if err := PrintColumnMismatchReport(db); err != nil {
		return err
	}

	g := gen.NewGenerator(gen.Config{
		OutPath:           outPath,
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(db)
	g.ApplyBasic(AllModels()...)
	g.Execute()

	log.Info().Str("outPath", outPath).Msg("model generation complete")
	return nil
}

// ColumnMismatches returns, per table, the database columns that no model field maps to.
// Tables that don't exist yet are skipped.
func ColumnMismatches(db *gorm.DB) (map[string][]string, error) {
	report := make(map[string][]string)

	for _, model := range AllModels() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("parse model %T: %w", model, err)
		}
		table := stmt.Schema.Table

		if !db.Migrator().HasTable(model) {
			continue
		}

		columns, err := db.Migrator().ColumnTypes(model)
		if err != nil {
			return nil, fmt.Errorf("columns of %s: %w", table, err)
		}

		known := make(map[string]bool, len(stmt.Schema.DBNames))
		for _, name := range stmt.Schema.DBNames {
			known[name] = true
		}

		var missing []string
		for _, col := range columns {
			if !known[col.Name()] {
				missing = append(missing, col.Name())
			}
		}
		sort.Strings(missing)
		report[table] = missing
	}

	return report, nil
}

func PrintColumnMismatchReport(db *gorm.DB) error {
	report, err := ColumnMismatches(db)
	if err != nil {
		return err
	}

	tables := make([]string, 0, len(report))
	for table := range report {
		tables = append(tables, table)
	}
	sort.Strings(tables)

	total := 0
	for _, table := range tables {
		missing := report[table]
		total += len(missing)
		if len(missing) == 0 {
			log.Info().Str("table", table).Msg("all columns are accounted for in the model")
			continue
		}
		log.Warn().Str("table", table).Strs("columns", missing).Msg("columns not accounted for in model")
	}

	log.Info().Int("total", total).Msg("column mismatch report done")
	return nil
}
