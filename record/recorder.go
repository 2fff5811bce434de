// Package record stores simulation results into a SQLite database so that
// runs can be compared and post-processed offline.
package record

import (
	"database/sql"
	"fmt"
	"reflect"
	"strings"

	// Need to use SQLite connections.
	_ "github.com/mattn/go-sqlite3"
	"github.com/tebeka/atexit"
)

// Recorder is a backend that can record and store result rows.
type Recorder interface {
	// CreateTable creates a new table shaped after sampleEntry.
	CreateTable(tableName string, sampleEntry any)

	// InsertData buffers one entry for a table that already exists.
	InsertData(tableName string, entry any)

	// Flush writes all buffered entries into the database.
	Flush()
}

// New creates a Recorder backed by the SQLite database at path.
func New(path string) Recorder {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		panic(err)
	}

	w := &sqliteWriter{
		db:     db,
		tables: make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

// NewWithDB creates a Recorder on an existing database handle.
func NewWithDB(db *sql.DB) Recorder {
	w := &sqliteWriter{
		db:     db,
		tables: make(map[string]*table),
	}

	atexit.Register(func() { w.Flush() })

	return w
}

type table struct {
	structType reflect.Type
	entries    []any
}

type sqliteWriter struct {
	db     *sql.DB
	tables map[string]*table
}

func (w *sqliteWriter) CreateTable(tableName string, sampleEntry any) {
	t := reflect.TypeOf(sampleEntry)
	if t.Kind() != reflect.Struct {
		panic("record: sample entry must be a struct")
	}

	if _, ok := w.tables[tableName]; ok {
		panic("record: table " + tableName + " already exists")
	}

	cols := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		cols = append(cols,
			fmt.Sprintf("%s %s", field.Name, sqlType(field.Type)))
	}

	stmt := fmt.Sprintf("CREATE TABLE %s (%s)",
		tableName, strings.Join(cols, ", "))
	w.mustExecute(stmt)

	w.tables[tableName] = &table{structType: t}
}

func (w *sqliteWriter) InsertData(tableName string, entry any) {
	t, ok := w.tables[tableName]
	if !ok {
		panic("record: table " + tableName + " does not exist")
	}

	if reflect.TypeOf(entry) != t.structType {
		panic(fmt.Sprintf("record: entry type %T does not match table %s",
			entry, tableName))
	}

	t.entries = append(t.entries, entry)
}

func (w *sqliteWriter) Flush() {
	for name, t := range w.tables {
		if len(t.entries) == 0 {
			continue
		}

		w.mustExecute("BEGIN TRANSACTION")
		for _, entry := range t.entries {
			w.insertOne(name, t, entry)
		}
		w.mustExecute("COMMIT TRANSACTION")

		t.entries = nil
	}
}

func (w *sqliteWriter) insertOne(name string, t *table, entry any) {
	v := reflect.ValueOf(entry)

	placeholders := make([]string, 0, t.structType.NumField())
	values := make([]any, 0, t.structType.NumField())
	for i := 0; i < t.structType.NumField(); i++ {
		placeholders = append(placeholders, "?")
		values = append(values, normalize(v.Field(i)))
	}

	stmt := fmt.Sprintf("INSERT INTO %s VALUES (%s)",
		name, strings.Join(placeholders, ", "))

	_, err := w.db.Exec(stmt, values...)
	if err != nil {
		panic(err)
	}
}

func (w *sqliteWriter) mustExecute(stmt string) {
	_, err := w.db.Exec(stmt)
	if err != nil {
		panic(err)
	}
}

func sqlType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32,
		reflect.Int64, reflect.Uint, reflect.Uint8, reflect.Uint16,
		reflect.Uint32, reflect.Uint64, reflect.Bool:
		return "INTEGER"
	case reflect.Float32, reflect.Float64:
		return "REAL"
	case reflect.String:
		return "TEXT"
	}

	panic("record: unsupported field type " + t.String())
}

func normalize(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64:
		return int64(v.Uint())
	}

	return v.Interface()
}
