package eventlogger

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/juju/errors"
)

type sqlEventLogger struct {
	db *sql.DB
}

func NewSqlEventLogger(db *sql.DB) *sqlEventLogger {
	return &sqlEventLogger{
		db: db,
	}
}

func (el *sqlEventLogger) Save(ctx context.Context, e Event) error {
	jsonData, err := json.Marshal(e.Data)
	if err != nil {
		return errors.Annotate(err, "encoding event data")
	}
	jsonMetadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return errors.Annotate(err, "encoding event metadata")
	}
	statement := `INSERT INTO events (id, event_type, event_data, event_metadata, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err = el.db.ExecContext(ctx, statement, e.ID, e.Type, string(jsonData), string(jsonMetadata), e.CreatedAt)
	if err != nil {
		return errors.Annotatef(err, "inserting %s event", e.Type)
	}

	return nil
}

// GetByType returns events of eventType oldest first. Data is returned as
// raw JSON.
func (el *sqlEventLogger) GetByType(ctx context.Context, eventType string) ([]Event, error) {
	query := `SELECT id, event_type, event_data, event_metadata, created_at FROM events WHERE event_type = $1 ORDER BY created_at ASC`
	result, err := el.db.QueryContext(ctx, query, eventType)
	if err != nil {
		return nil, errors.Annotate(err, "querying events")
	}
	defer result.Close()

	events := make([]Event, 0)
	for result.Next() {
		var event Event
		var jsonData, jsonMetadata string
		if err := result.Scan(&event.ID, &event.Type, &jsonData, &jsonMetadata, &event.CreatedAt); err != nil {
			return events, errors.Trace(err)
		}
		event.Data = json.RawMessage(jsonData)

		var metadata map[string]string
		if err := json.Unmarshal([]byte(jsonMetadata), &metadata); err != nil {
			return events, errors.Annotate(err, "decoding event metadata")
		}
		event.Metadata = metadata

		events = append(events, event)
	}

	if err := result.Err(); err != nil {
		return events, errors.Trace(err)
	}

	return events, nil
}
