package store

// Schema is the DDL for saved documents and their change logs.
const Schema = `
-- Saved snapshots of a session's Target Document
CREATE TABLE IF NOT EXISTS saved_documents (
    id           TEXT PRIMARY KEY,
    session_id   TEXT NOT NULL,
    html         TEXT NOT NULL,
    content_hash TEXT NOT NULL,
    created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_saved_documents_session ON saved_documents(session_id, created_at);

-- Edit history at the time of saving, oldest first
CREATE TABLE IF NOT EXISTS change_logs (
    document_id TEXT NOT NULL,
    seq         INTEGER NOT NULL,
    record_json TEXT NOT NULL,
    PRIMARY KEY (document_id, seq),
    FOREIGN KEY (document_id) REFERENCES saved_documents(id) ON DELETE CASCADE
);
`
