package journalmem

const VectorDimensions = 768

const schema = `
CREATE TABLE IF NOT EXISTS superjournal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT,
    persona TEXT NOT NULL,
    user_message TEXT NOT NULL,
    assistant_response TEXT NOT NULL,
    starred INTEGER DEFAULT 0,
    private INTEGER DEFAULT 0,
    created_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_superjournal_user_persona
    ON superjournal(user_id, persona, created_at DESC);

CREATE TABLE IF NOT EXISTS journal (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    superjournal_id INTEGER REFERENCES superjournal(id) ON DELETE CASCADE,
    user_id TEXT,
    persona TEXT NOT NULL,
    user_intent TEXT NOT NULL DEFAULT '',
    persona_response TEXT NOT NULL DEFAULT '',
    decision_arc TEXT NOT NULL DEFAULT '',
    salience INTEGER NOT NULL CHECK (salience BETWEEN 1 AND 10),
    starred INTEGER DEFAULT 0,
    is_instruction INTEGER DEFAULT 0,
    instruction_scope TEXT,
    private INTEGER DEFAULT 0,
    file_name TEXT,
    file_type TEXT,
    created_at DATETIME DEFAULT (datetime('now')),
    updated_at DATETIME DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_journal_user_persona
    ON journal(user_id, persona, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_journal_salience
    ON journal(user_id, salience DESC);
CREATE INDEX IF NOT EXISTS idx_journal_starred
    ON journal(user_id, starred);
`

const vecSchema = `
CREATE VIRTUAL TABLE IF NOT EXISTS vec_journal USING vec0(
    entry_id INTEGER PRIMARY KEY,
    embedding FLOAT[768]
);
`
