package storage

const Schema = `
-- Sites: one row per configured site, status driven by the indexing run
CREATE TABLE IF NOT EXISTS site (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    url TEXT UNIQUE NOT NULL,
    name TEXT NOT NULL,
    status TEXT NOT NULL CHECK (status IN ('INDEXING', 'INDEXED', 'FAILED')),
    status_time DATETIME NOT NULL,
    last_error TEXT
);
CREATE INDEX IF NOT EXISTS idx_site_status ON site(status);

-- Pages: raw fetched documents, path is relative to the site url
CREATE TABLE IF NOT EXISTS page (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL,
    path TEXT NOT NULL,
    code INTEGER NOT NULL,
    content TEXT NOT NULL,
    UNIQUE (site_id, path),
    FOREIGN KEY (site_id) REFERENCES site(id) ON DELETE CASCADE
);

-- Fields: weighted document regions
CREATE TABLE IF NOT EXISTS field (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT UNIQUE NOT NULL,
    selector TEXT NOT NULL,
    weight REAL NOT NULL CHECK (weight > 0)
);

-- Lemmas: per-site dictionary, frequency = number of pages containing the lemma
CREATE TABLE IF NOT EXISTS lemma (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    site_id INTEGER NOT NULL,
    lemma TEXT NOT NULL,
    frequency INTEGER NOT NULL CHECK (frequency >= 0),
    UNIQUE (site_id, lemma),
    FOREIGN KEY (site_id) REFERENCES site(id) ON DELETE CASCADE
);

-- Inverted index: one row per (page, lemma)
CREATE TABLE IF NOT EXISTS search_index (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    page_id INTEGER NOT NULL,
    lemma_id INTEGER NOT NULL,
    rank REAL NOT NULL CHECK (rank > 0),
    UNIQUE (page_id, lemma_id),
    FOREIGN KEY (page_id) REFERENCES page(id) ON DELETE CASCADE,
    FOREIGN KEY (lemma_id) REFERENCES lemma(id)
);
CREATE INDEX IF NOT EXISTS idx_search_index_lemma ON search_index(lemma_id);
`
