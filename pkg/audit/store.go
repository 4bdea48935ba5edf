package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const insertMessage = `INSERT INTO messages (facility, severity, timestamp, hostname, appname, procid, msgid, sdata, message)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Store writes events to the messages table of the audit database. A nil
// Store, or one without a database, discards events.
type Store struct {
	db     *sql.DB
	origin origin
}

// NewStore opens the audit database at dbURL. An empty URL disables
// persistence and yields a nil Store.
func NewStore(dbURL string) (*Store, error) {
	if dbURL == "" {
		return nil, nil
	}
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	return NewStoreWithDB(db), nil
}

func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db, origin: currentOrigin()}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Save(event Event) error {
	if s == nil || s.db == nil {
		return nil
	}
	sdata, err := json.Marshal(event.StructuredData())
	if err != nil {
		return fmt.Errorf("encode structured data: %w", err)
	}
	_, err = s.db.Exec(insertMessage,
		event.Facility(),
		int(event.Severity()),
		time.Now().UTC(),
		s.origin.hostname,
		AppName,
		s.origin.pid,
		event.MessageID(),
		sdata,
		event.Message(),
	)
	return err
}
