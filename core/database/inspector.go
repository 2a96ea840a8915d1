package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// ColumnInfo matches the output of SHOW COLUMNS
type ColumnInfo struct {
	Field   string
	Type    string
	Null    string
	Key     string
	Default *string // Pointer because NULL default is possible
	Extra   string
}

// GetTableColumns retrieves the column definitions for a given table.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	// Check dialect
	if db.Dialector.Name() == "sqlite" {
		// SQLite uses PRAGMA table_info
		type SQLiteColumn struct {
			Cid        int
			Name       string
			Type       string
			Notnull    int
			DefaultVal *string
			Pk         int
		}
		var sqliteCols []SQLiteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&sqliteCols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range sqliteCols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	err := db.Raw(fmt.Sprintf("SHOW COLUMNS FROM `%s`", tableName)).Scan(&columns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	// Normalize types to lowercase
	for i := range columns {
		columns[i].Type = strings.ToLower(columns[i].Type)
		columns[i].Field = strings.ToLower(columns[i].Field)
	}
	return columns, nil
}

// TableSpec names a table and the columns a query depends on.
type TableSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns" yaml:"columns"`
}

// TableReport is the result of checking one TableSpec.
type TableReport struct {
	Table          string   `json:"table" yaml:"table"`
	Exists         bool     `json:"exists" yaml:"exists"`
	MissingColumns []string `json:"missing_columns,omitempty" yaml:"missing_columns,omitempty"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// OK reports whether the table exists with every expected column.
func (r TableReport) OK() bool {
	return r.Exists && len(r.MissingColumns) == 0 && r.Error == ""
}

// CheckTables compares each spec against the live schema. A table with no
// columns is reported as missing.
func CheckTables(db *gorm.DB, specs []TableSpec) []TableReport {
	reports := make([]TableReport, 0, len(specs))
	for _, spec := range specs {
		report := TableReport{Table: spec.Name}
		cols, err := GetTableColumns(db, spec.Name)
		if err != nil {
			report.Error = err.Error()
			reports = append(reports, report)
			continue
		}
		present := make(map[string]bool, len(cols))
		for _, c := range cols {
			present[c.Field] = true
		}
		report.Exists = len(cols) > 0
		if report.Exists {
			for _, want := range spec.Columns {
				if !present[strings.ToLower(want)] {
					report.MissingColumns = append(report.MissingColumns, want)
				}
			}
		}
		reports = append(reports, report)
	}
	return reports
}
