package journal

const Schema = `
CREATE TABLE IF NOT EXISTS closes (
	id TEXT PRIMARY KEY,
	position_id INTEGER NOT NULL,
	instrument TEXT NOT NULL,
	side TEXT NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	leverage REAL NOT NULL,
	notional REAL NOT NULL,
	margin REAL NOT NULL,
	units REAL NOT NULL,
	realized_pl REAL NOT NULL,
	realized_pct REAL NOT NULL,
	reason TEXT NOT NULL,
	closed_pct REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	unrealized REAL NOT NULL,
	margin_used REAL NOT NULL,
	free_margin REAL NOT NULL,
	margin_level REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_closes_close_time ON closes(close_time);
CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
