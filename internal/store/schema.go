package store

// Schema contains the DDL for the run log.
const Schema = `
-- One row per sdkcheck invocation
CREATE TABLE IF NOT EXISTS runs (
    id           TEXT PRIMARY KEY,
    screen       TEXT NOT NULL,
    lang         TEXT NOT NULL,
    url          TEXT NOT NULL DEFAULT '',
    passed       INTEGER NOT NULL DEFAULT 0,
    failed       INTEGER NOT NULL DEFAULT 0,
    started_at   INTEGER NOT NULL,
    finished_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_screen ON runs(screen);

-- Individual check outcomes, in the order they ran
CREATE TABLE IF NOT EXISTS results (
    run_id     TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    seq        INTEGER NOT NULL,
    key        TEXT NOT NULL DEFAULT '',
    selector   TEXT NOT NULL DEFAULT '',
    want       TEXT NOT NULL DEFAULT '',
    got        TEXT NOT NULL DEFAULT '',
    passed     INTEGER NOT NULL,
    error      TEXT NOT NULL DEFAULT '',
    snapshot   TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, seq)
);
`
