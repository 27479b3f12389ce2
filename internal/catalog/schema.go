package catalog

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS hosts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hostname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tagname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS attributes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		attrname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS host_tags (
		host_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		PRIMARY KEY (host_id, tag_id),
		FOREIGN KEY (host_id) REFERENCES hosts(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS host_attributes (
		host_id INTEGER NOT NULL,
		attribute_id INTEGER NOT NULL,
		value VARCHAR(255) NOT NULL,
		PRIMARY KEY (host_id, attribute_id),
		FOREIGN KEY (host_id) REFERENCES hosts(id) ON DELETE CASCADE,
		FOREIGN KEY (attribute_id) REFERENCES attributes(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_host_tags_tag_id ON host_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_host_attributes_attribute_id ON host_attributes(attribute_id)`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS hosts (
		id BIGSERIAL PRIMARY KEY,
		hostname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS tags (
		id BIGSERIAL PRIMARY KEY,
		tagname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS attributes (
		id BIGSERIAL PRIMARY KEY,
		attrname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS host_tags (
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		tag_id BIGINT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
		PRIMARY KEY (host_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS host_attributes (
		host_id BIGINT NOT NULL REFERENCES hosts(id) ON DELETE CASCADE,
		attribute_id BIGINT NOT NULL REFERENCES attributes(id) ON DELETE CASCADE,
		value VARCHAR(255) NOT NULL,
		PRIMARY KEY (host_id, attribute_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_host_tags_tag_id ON host_tags(tag_id)`,
	`CREATE INDEX IF NOT EXISTS idx_host_attributes_attribute_id ON host_attributes(attribute_id)`,
}
