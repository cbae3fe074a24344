package storage

// Schema creates the staging tables. The store file is recreated on every
// open, so there is no version tracking.
const Schema = `
CREATE TABLE IF NOT EXISTS entities (
    id    INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    value TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS attributes (
    id        INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
    key       TEXT NOT NULL,
    value     TEXT NOT NULL,
    entity_id INTEGER NOT NULL
        REFERENCES entities (id) ON UPDATE CASCADE ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_attributes_entity_id ON attributes(entity_id);
CREATE INDEX IF NOT EXISTS idx_attributes_key ON attributes(key);
`

const (
	insertEntitySQL    = `INSERT INTO entities (value) VALUES (?)`
	selectEntitySQL    = `SELECT id FROM entities WHERE value = ?`
	insertAttributeSQL = `INSERT INTO attributes (key, value, entity_id) VALUES (?, ?, ?)`
	countEntitiesSQL   = `SELECT COUNT(*) FROM entities`
	listIDsSQL         = `SELECT id FROM entities ORDER BY id DESC`
	listEntitiesSQL    = `SELECT id, value FROM entities ORDER BY id`

	// Keys are reported in order of first appearance.
	distinctKeysSQL = `SELECT key FROM attributes GROUP BY key ORDER BY MIN(id)`

	entityAttributesSQL = `SELECT entity_id, key, value FROM attributes WHERE entity_id = ? ORDER BY id`
)
