package db

// PostgreSQL migrations for the document monitor

var postgresMigrations = []Migration{
	{
		Version: 1,
		Name:    "create_monitor_documents_table",
		Up: `
			CREATE TABLE IF NOT EXISTS monitor_documents (
				id TEXT PRIMARY KEY,
				url TEXT NOT NULL UNIQUE,
				source_name TEXT,
				title TEXT,
				publication_date TIMESTAMPTZ,
				fetched_at TIMESTAMPTZ NOT NULL,
				content_type TEXT,
				artifact_path TEXT,
				full_text TEXT,
				status TEXT NOT NULL DEFAULT 'new',
				created_at TIMESTAMPTZ DEFAULT NOW(),
				updated_at TIMESTAMPTZ DEFAULT NOW()
			);
			CREATE INDEX IF NOT EXISTS idx_monitor_documents_url ON monitor_documents(url);
			CREATE INDEX IF NOT EXISTS idx_monitor_documents_created_at ON monitor_documents(created_at);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_monitor_documents_created_at;
			DROP INDEX IF EXISTS idx_monitor_documents_url;
			DROP TABLE IF EXISTS monitor_documents;
		`,
	},
	{
		Version: 2,
		Name:    "add_status_index",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_monitor_documents_status ON monitor_documents(status);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_monitor_documents_status;
		`,
	},
	{
		Version: 3,
		Name:    "add_relevance_columns",
		Up: `
			ALTER TABLE monitor_documents ADD COLUMN IF NOT EXISTS tier INTEGER DEFAULT 0;
			ALTER TABLE monitor_documents ADD COLUMN IF NOT EXISTS matched_terms TEXT;
			ALTER TABLE monitor_documents ADD COLUMN IF NOT EXISTS matched_theme TEXT;
		`,
		Down: `
			ALTER TABLE monitor_documents DROP COLUMN IF EXISTS matched_theme;
			ALTER TABLE monitor_documents DROP COLUMN IF EXISTS matched_terms;
			ALTER TABLE monitor_documents DROP COLUMN IF EXISTS tier;
		`,
	},
	{
		Version: 4,
		Name:    "add_analysis_columns",
		Up: `
			ALTER TABLE monitor_documents ADD COLUMN IF NOT EXISTS is_relevant BOOLEAN;
			ALTER TABLE monitor_documents ADD COLUMN IF NOT EXISTS summary TEXT;
		`,
		Down: `
			ALTER TABLE monitor_documents DROP COLUMN IF EXISTS summary;
			ALTER TABLE monitor_documents DROP COLUMN IF EXISTS is_relevant;
		`,
	},
}
