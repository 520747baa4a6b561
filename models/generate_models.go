package models

import (
	"fmt"
	"log"
	"os"
	"reflect"
	"sort"
	"strings"

	"gorm.io/gen"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

/*
Schema tooling.

GENERATE_MODELS=true migrates the tables below and writes typed query helpers
to ./generated. GENERATE_COLUMN_REPORT=true only prints columns that exist in
Postgres but have no field in the matching struct (Supabase dashboards make it
easy to add a column by hand and forget about it).
*/

// All lists every persisted model, in migration order.
func All() []any {
	return []any{&Project{}, &ProjectTag{}, &Feedback{}}
}

// Migrate creates or updates the tables for every model.
func Migrate(db *gorm.DB) error {
	migrateDB := db.Session(&gorm.Session{
		SkipDefaultTransaction: true,
		PrepareStmt:            false,
	})
	if err := migrateDB.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func GenerateModels(db *gorm.DB) error {
	if err := db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	verbose := db.Session(&gorm.Session{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel: logger.Info,
				Colorful: true,
			},
		),
	})

	if err := Migrate(verbose); err != nil {
		return err
	}

	GenerateColumnMismatchReport(verbose)

	g := gen.NewGenerator(gen.Config{
		OutPath:           "./generated",
		Mode:              gen.WithDefaultQuery | gen.WithQueryInterface,
		FieldNullable:     true,
		FieldCoverable:    true,
		FieldWithIndexTag: true,
		FieldWithTypeTag:  true,
	})
	g.UseDB(verbose)
	g.ApplyBasic(Project{}, ProjectTag{}, Feedback{})
	g.Execute()
	return nil
}

// GenerateColumnMismatchReport prints, per table, the database columns that no
// struct field maps to.
func GenerateColumnMismatchReport(db *gorm.DB) int {
	fmt.Println("=== COLUMN MISMATCH REPORT ===")

	total := 0
	for _, model := range All() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			fmt.Printf("Error parsing %T: %v\n", model, err)
			continue
		}
		table := stmt.Schema.Table

		fmt.Printf("\n--- Table: %s ---\n", table)
		dbColumns, err := getTableColumns(db, table)
		if err != nil {
			fmt.Printf("Error getting columns for table %s: %v\n", table, err)
			continue
		}

		mismatches := findColumnMismatches(dbColumns, ModelColumns(stmt.Schema))
		if len(mismatches) == 0 {
			fmt.Println("All columns are accounted for in the model.")
			continue
		}
		fmt.Printf("Found %d columns not accounted for in model:\n", len(mismatches))
		for _, col := range mismatches {
			fmt.Printf("  - %s\n", col)
		}
		total += len(mismatches)
	}

	fmt.Printf("\n=== SUMMARY ===\nTotal mismatched columns across all tables: %d\n", total)
	return total
}

func getTableColumns(db *gorm.DB, tableName string) ([]string, error) {
	var columns []string
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = ?
		AND table_schema = CURRENT_SCHEMA()
		ORDER BY ordinal_position
	`
	if err := db.Raw(query, tableName).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("error querying columns for table %s: %w", tableName, err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s does not exist", tableName)
	}
	return columns, nil
}

// ModelColumns returns the column names gorm maps for a parsed schema,
// skipping relationship fields.
func ModelColumns(s *schema.Schema) []string {
	var cols []string
	for _, f := range s.Fields {
		if f.DBName == "" {
			continue
		}
		if f.FieldType.Kind() == reflect.Slice && f.FieldType.Elem().Kind() == reflect.Struct {
			continue
		}
		cols = append(cols, f.DBName)
	}
	sort.Strings(cols)
	return cols
}

func findColumnMismatches(dbColumns, modelFields []string) []string {
	known := make(map[string]bool, len(modelFields))
	for _, field := range modelFields {
		known[strings.ToLower(field)] = true
	}

	var mismatches []string
	for _, col := range dbColumns {
		if !known[strings.ToLower(col)] {
			mismatches = append(mismatches, col)
		}
	}
	return mismatches
}
