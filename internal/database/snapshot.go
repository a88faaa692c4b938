package database

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"comparador/internal/apperr"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var sqliteHeader = []byte("SQLite format 3\x00")

type tableSpec struct {
	name    string
	columns []string
	model   any
}

func tableSpecs(db *gorm.DB) ([]tableSpec, error) {
	specs := make([]tableSpec, 0, len(Models()))
	for _, model := range Models() {
		stmt := &gorm.Statement{DB: db}
		if err := stmt.Parse(model); err != nil {
			return nil, fmt.Errorf("failed to parse schema: %w", err)
		}
		specs = append(specs, tableSpec{name: stmt.Schema.Table, columns: stmt.Schema.DBNames, model: model})
	}
	return specs, nil
}

// ExportSQLite returns a consistent copy of the sqlite store at path. VACUUM INTO reads inside a
// single read transaction, so concurrent writers never leave a torn copy.
func ExportSQLite(ctx context.Context, db *gorm.DB, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("no database file: %w", apperr.ErrNotFound)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("database file %s: %w", path, apperr.ErrNotFound)
		}
		return nil, apperr.Storage(err)
	}

	dir, err := os.MkdirTemp("", "snapshot-export-*")
	if err != nil {
		return nil, apperr.Storage(err)
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, "snapshot.db")
	if err := db.WithContext(ctx).Exec("VACUUM INTO ?", target).Error; err != nil {
		return nil, apperr.Storage(fmt.Errorf("vacuum into snapshot: %w", err))
	}

	data, err := os.ReadFile(target)
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return data, nil
}

// ImportSQLite replaces every table of db with the contents of blob. The blob must be a sqlite
// file carrying all application tables; anything else fails with apperr.ErrInvalidFormat and
// leaves db untouched. The replacement runs in one write transaction.
func ImportSQLite(ctx context.Context, db *gorm.DB, blob []byte) error {
	if !bytes.HasPrefix(blob, sqliteHeader) {
		return fmt.Errorf("snapshot is not a sqlite file: %w", apperr.ErrInvalidFormat)
	}

	dir, err := os.MkdirTemp("", "snapshot-import-*")
	if err != nil {
		return apperr.Storage(err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "upload.db")
	if err := os.WriteFile(src, blob, 0o600); err != nil {
		return apperr.Storage(err)
	}

	specs, err := tableSpecs(db)
	if err != nil {
		return apperr.Storage(err)
	}
	if err := validateSnapshot(src, specs); err != nil {
		return err
	}

	return db.WithContext(ctx).Connection(func(conn *gorm.DB) error {
		if err := conn.Exec("ATTACH DATABASE ? AS snapshot", src).Error; err != nil {
			return apperr.Storage(fmt.Errorf("attach snapshot: %w", err))
		}
		defer conn.Exec("DETACH DATABASE snapshot")

		err := conn.Transaction(func(tx *gorm.DB) error {
			for i := len(specs) - 1; i >= 0; i-- {
				if err := tx.Exec(fmt.Sprintf(`DELETE FROM main.%q`, specs[i].name)).Error; err != nil {
					return fmt.Errorf("clear %s: %w", specs[i].name, err)
				}
			}
			for _, spec := range specs {
				cols := quoteColumns(spec.columns)
				query := fmt.Sprintf(`INSERT INTO main.%q (%s) SELECT %s FROM snapshot.%q`, spec.name, cols, cols, spec.name)
				if err := tx.Exec(query).Error; err != nil {
					return fmt.Errorf("copy %s: %w", spec.name, err)
				}
			}
			return nil
		})
		if err != nil {
			if isConstraintViolation(err) {
				return fmt.Errorf("snapshot violates store constraints: %v: %w", err, apperr.ErrInvalidFormat)
			}
			return apperr.Storage(err)
		}
		return nil
	})
}

// isConstraintViolation reports whether err comes from rows the live schema refuses: duplicate
// keys, dangling references, NULLs in required columns or failed checks.
func isConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func validateSnapshot(path string, specs []tableSpec) error {
	snap, err := OpenSQLite(path, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return fmt.Errorf("open snapshot: %v: %w", err, apperr.ErrInvalidFormat)
	}
	defer Close(snap)

	var result string
	if err := snap.Raw("PRAGMA integrity_check").Scan(&result).Error; err != nil {
		return fmt.Errorf("snapshot integrity check: %v: %w", err, apperr.ErrInvalidFormat)
	}
	if result != "ok" {
		return fmt.Errorf("snapshot integrity check reported %q: %w", result, apperr.ErrInvalidFormat)
	}

	migrator := snap.Migrator()
	for _, spec := range specs {
		if !migrator.HasTable(spec.name) {
			return fmt.Errorf("snapshot lacks table %s: %w", spec.name, apperr.ErrInvalidFormat)
		}
		for _, col := range spec.columns {
			if !migrator.HasColumn(spec.model, col) {
				return fmt.Errorf("snapshot table %s lacks column %s: %w", spec.name, col, apperr.ErrInvalidFormat)
			}
		}
	}
	return nil
}

func quoteColumns(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return strings.Join(quoted, ", ")
}
