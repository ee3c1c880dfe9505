package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"time"

	"github.com/hpungsan/tddocs/internal/docs"
	"github.com/hpungsan/tddocs/internal/errors"
)

// Meta keys.
const (
	MetaFingerprint = "fingerprint"
	MetaBuildID     = "build_id"
	MetaSavedAt     = "saved_at"
)

// Meta describes the cached corpus.
type Meta struct {
	Fingerprint string
	BuildID     string
	SavedAt     int64
}

// SaveCorpus replaces the cached corpus with c in a single transaction.
func SaveCorpus(ctx context.Context, db *sql.DB, c *docs.Corpus, fingerprint, buildID string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewIO("begin corpus save", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"operators", "tutorials", "python_classes", "aliases", "meta"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return errors.NewIO("clear "+table, err)
		}
	}

	for i, e := range c.Operators.All() {
		payload, err := json.Marshal(e)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO operators (name, position, category, payload) VALUES (?, ?, ?, ?)`,
			e.Name, i, e.Category, string(payload),
		); err != nil {
			return errors.NewIO("insert operator", err)
		}
	}
	for i, t := range c.Tutorials.All() {
		payload, err := json.Marshal(t)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO tutorials (name, position, payload) VALUES (?, ?, ?)`,
			t.Name, i, string(payload),
		); err != nil {
			return errors.NewIO("insert tutorial", err)
		}
	}
	for i, p := range c.Classes.All() {
		payload, err := json.Marshal(p)
		if err != nil {
			return errors.NewInternal(err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO python_classes (name, position, parent, payload) VALUES (?, ?, ?, ?)`,
			p.Name, i, toNullString(p.Parent), string(payload),
		); err != nil {
			return errors.NewIO("insert python class", err)
		}
	}

	aliasSets := map[docs.Kind]map[string]string{
		docs.KindOperator:    c.Operators.Aliases(),
		docs.KindTutorial:    c.Tutorials.Aliases(),
		docs.KindPythonClass: c.Classes.Aliases(),
	}
	for kind, aliases := range aliasSets {
		for alias, name := range aliases {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO aliases (kind, alias, name) VALUES (?, ?, ?)`,
				string(kind), alias, name,
			); err != nil {
				return errors.NewIO("insert alias", err)
			}
		}
	}

	meta := map[string]string{
		MetaFingerprint: fingerprint,
		MetaBuildID:     buildID,
		MetaSavedAt:     strconv.FormatInt(time.Now().Unix(), 10),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return errors.NewIO("insert meta", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewIO("commit corpus save", err)
	}
	return nil
}

// ReadMeta returns the metadata of the cached corpus.
// An empty cache yields a zero Meta.
func ReadMeta(ctx context.Context, db *sql.DB) (Meta, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return Meta{}, errors.NewIO("read meta", err)
	}
	defer rows.Close()

	var m Meta
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Meta{}, errors.NewIO("scan meta", err)
		}
		switch k {
		case MetaFingerprint:
			m.Fingerprint = v
		case MetaBuildID:
			m.BuildID = v
		case MetaSavedAt:
			m.SavedAt, _ = strconv.ParseInt(v, 10, 64)
		}
	}
	if err := rows.Err(); err != nil {
		return Meta{}, errors.NewIO("iterate meta", err)
	}
	return m, nil
}

// LoadCorpus reads the cached corpus if its fingerprint matches.
// Returns ErrCacheInvalid when the cache is empty or stale.
func LoadCorpus(ctx context.Context, db *sql.DB, fingerprint string) (*docs.Corpus, Meta, error) {
	meta, err := ReadMeta(ctx, db)
	if err != nil {
		return nil, Meta{}, err
	}
	if meta.Fingerprint == "" {
		return nil, meta, errors.NewCacheInvalid("no cached corpus")
	}
	if meta.Fingerprint != fingerprint {
		return nil, meta, errors.NewCacheInvalid("corpus fingerprint mismatch")
	}

	// The saved alias map is complete; replay it first so record aliases
	// cannot claim a key that belonged to another record at build time.
	c := docs.NewCorpus()
	if err := loadAliases(ctx, db, c); err != nil {
		return nil, meta, err
	}
	if err := loadTable(ctx, db, "operators", func(payload []byte) error {
		var e docs.Entry
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		c.Operators.Add(&e)
		return nil
	}); err != nil {
		return nil, meta, err
	}
	if err := loadTable(ctx, db, "tutorials", func(payload []byte) error {
		var t docs.Tutorial
		if err := json.Unmarshal(payload, &t); err != nil {
			return err
		}
		c.Tutorials.Add(&t)
		return nil
	}); err != nil {
		return nil, meta, err
	}
	if err := loadTable(ctx, db, "python_classes", func(payload []byte) error {
		var p docs.PythonClass
		if err := json.Unmarshal(payload, &p); err != nil {
			return err
		}
		c.Classes.Add(&p)
		return nil
	}); err != nil {
		return nil, meta, err
	}

	return c, meta, nil
}

func loadTable(ctx context.Context, db *sql.DB, table string, add func([]byte) error) error {
	rows, err := db.QueryContext(ctx, "SELECT payload FROM "+table+" ORDER BY position ASC")
	if err != nil {
		return errors.NewIO("query "+table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return errors.NewIO("scan "+table, err)
		}
		if err := add([]byte(payload)); err != nil {
			return errors.NewCacheInvalid("corrupt " + table + " payload: " + err.Error())
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewIO("iterate "+table, err)
	}
	return nil
}

func loadAliases(ctx context.Context, db *sql.DB, c *docs.Corpus) error {
	rows, err := db.QueryContext(ctx, `SELECT kind, alias, name FROM aliases`)
	if err != nil {
		return errors.NewIO("query aliases", err)
	}
	defer rows.Close()

	for rows.Next() {
		var kind, alias, name string
		if err := rows.Scan(&kind, &alias, &name); err != nil {
			return errors.NewIO("scan alias", err)
		}
		switch docs.Kind(kind) {
		case docs.KindOperator:
			c.Operators.AddAlias(name, alias)
		case docs.KindTutorial:
			c.Tutorials.AddAlias(name, alias)
		case docs.KindPythonClass:
			c.Classes.AddAlias(name, alias)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewIO("iterate aliases", err)
	}
	return nil
}

// toNullString converts an empty string to a NULL column value.
func toNullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
