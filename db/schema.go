package db

// postgresSchema sets up the necessary tables on PostgreSQL.
// In a production environment, use a proper migration tool (e.g., golang-migrate).
const postgresSchema = `
CREATE TABLE IF NOT EXISTS subjects (
	id SERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS questions (
	id SERIAL PRIMARY KEY,
	subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	topic TEXT NOT NULL,
	stem TEXT NOT NULL,
	stem_hash TEXT NOT NULL UNIQUE,
	answer_index INTEGER NOT NULL,
	rationale TEXT NOT NULL,
	source_refs JSONB NOT NULL DEFAULT '[]'::jsonb,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS ix_questions_subject ON questions(subject_id);
CREATE INDEX IF NOT EXISTS ix_questions_active ON questions(is_active);

CREATE TABLE IF NOT EXISTS choices (
	id SERIAL PRIMARY KEY,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	text TEXT NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	UNIQUE (question_id, label) -- One choice per label per question
);
CREATE INDEX IF NOT EXISTS ix_choices_question ON choices(question_id);

CREATE TABLE IF NOT EXISTS drill_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	total INTEGER NOT NULL,
	started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	finished_at TIMESTAMPTZ,
	duration_sec INTEGER NOT NULL DEFAULT 0,
	score INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_drill_sessions_user ON drill_sessions(user_id);

CREATE TABLE IF NOT EXISTS drill_items (
	id SERIAL PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES drill_sessions(id) ON DELETE CASCADE,
	order_index INTEGER NOT NULL,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	user_answer INTEGER,
	is_correct BOOLEAN,
	answered_at TIMESTAMPTZ,
	elapsed_ms INTEGER,
	UNIQUE (session_id, order_index)
);
CREATE INDEX IF NOT EXISTS ix_drill_items_session ON drill_items(session_id);
CREATE INDEX IF NOT EXISTS ix_drill_items_question ON drill_items(question_id);
CREATE INDEX IF NOT EXISTS ix_drill_items_answered ON drill_items(answered_at);

CREATE TABLE IF NOT EXISTS error_logs (
	id SERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	source TEXT NOT NULL, -- e.g., "ingestion"
	subject TEXT,
	file_path TEXT,
	line_number INT,
	field_name TEXT,
	error_message TEXT NOT NULL,
	suggested_fix TEXT
);

CREATE TABLE IF NOT EXISTS admin_events (
	id SERIAL PRIMARY KEY,
	timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
	action TEXT NOT NULL,
	actor TEXT NOT NULL, -- User id or 'system'
	target TEXT,
	notes TEXT
);
`

// sqliteSchema mirrors postgresSchema for the embedded backend. Timestamps are unix
// milliseconds and booleans are 0/1.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS subjects (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS questions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	subject_id INTEGER NOT NULL REFERENCES subjects(id) ON DELETE CASCADE,
	topic TEXT NOT NULL,
	stem TEXT NOT NULL,
	stem_hash TEXT NOT NULL UNIQUE,
	answer_index INTEGER NOT NULL,
	rationale TEXT NOT NULL,
	source_refs TEXT NOT NULL DEFAULT '[]',
	is_active INTEGER NOT NULL DEFAULT 1 CHECK (is_active IN (0, 1)),
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS ix_questions_subject ON questions(subject_id);
CREATE INDEX IF NOT EXISTS ix_questions_active ON questions(is_active);

CREATE TABLE IF NOT EXISTS choices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	label TEXT NOT NULL,
	text TEXT NOT NULL,
	rationale TEXT NOT NULL DEFAULT '',
	UNIQUE (question_id, label)
);
CREATE INDEX IF NOT EXISTS ix_choices_question ON choices(question_id);

CREATE TABLE IF NOT EXISTS drill_sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	subject TEXT NOT NULL,
	total INTEGER NOT NULL,
	started_at INTEGER NOT NULL,
	finished_at INTEGER,
	duration_sec INTEGER NOT NULL DEFAULT 0,
	score INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_drill_sessions_user ON drill_sessions(user_id);

CREATE TABLE IF NOT EXISTS drill_items (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL REFERENCES drill_sessions(id) ON DELETE CASCADE,
	order_index INTEGER NOT NULL,
	question_id INTEGER NOT NULL REFERENCES questions(id) ON DELETE CASCADE,
	user_answer INTEGER,
	is_correct INTEGER,
	answered_at INTEGER,
	elapsed_ms INTEGER,
	UNIQUE (session_id, order_index)
);
CREATE INDEX IF NOT EXISTS ix_drill_items_session ON drill_items(session_id);
CREATE INDEX IF NOT EXISTS ix_drill_items_question ON drill_items(question_id);
CREATE INDEX IF NOT EXISTS ix_drill_items_answered ON drill_items(answered_at);

CREATE TABLE IF NOT EXISTS error_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	source TEXT NOT NULL,
	subject TEXT,
	file_path TEXT,
	line_number INTEGER,
	field_name TEXT,
	error_message TEXT NOT NULL,
	suggested_fix TEXT
);

CREATE TABLE IF NOT EXISTS admin_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp INTEGER NOT NULL,
	action TEXT NOT NULL,
	actor TEXT NOT NULL,
	target TEXT,
	notes TEXT
);
`
