package services

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"camvid-backend/internal/griddb"
	"camvid-backend/internal/models"
)

// RecordStore is the persistence surface the service drives.
// *griddb.Client implements it.
type RecordStore interface {
	EnsureContainer(ctx context.Context) error
	InsertRecord(ctx context.Context, rec griddb.Record) error
	Query(ctx context.Context, queries []griddb.SQLQuery) ([]griddb.QueryResult, error)
	Container() string
}

// RecordService persists and reads generation records. Container
// provisioning is an explicit, memoized step rather than ambient state:
// EnsureReady is called once at composition time and again lazily before
// the first write if startup provisioning failed.
type RecordService struct {
	store  RecordStore
	logger zerolog.Logger
	sf     singleflight.Group
	ready  atomic.Bool
}

func NewRecordService(store RecordStore, logger zerolog.Logger) *RecordService {
	return &RecordService{
		store:  store,
		logger: logger,
	}
}

// EnsureReady provisions the record container if it does not exist yet.
// Concurrent callers share one in-flight provisioning request.
func (s *RecordService) EnsureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}
	_, err, _ := s.sf.Do("ensure-container", func() (any, error) {
		return nil, s.store.EnsureContainer(ctx)
	})
	if err != nil {
		return err
	}
	s.ready.Store(true)
	return nil
}

// SaveGeneration writes one completed generation as a record and returns
// the record id. All three fields are required; validation failures happen
// before any store call. The id is generated locally immediately before the
// insert and checked against the container for collisions.
func (s *RecordService) SaveGeneration(ctx context.Context, imageURL, prompt, videoURL string) (int, error) {
	if imageURL == "" || prompt == "" || videoURL == "" {
		return 0, fmt.Errorf("missing required fields: an image URL, a prompt, and a generated video URL are all required")
	}

	if err := s.EnsureReady(ctx); err != nil {
		return 0, err
	}

	var id int
	for attempt := 0; ; attempt++ {
		id = newRecordID()
		taken, err := s.idTaken(ctx, id)
		if err != nil {
			return 0, err
		}
		if !taken {
			break
		}
		if attempt == 2 {
			return 0, fmt.Errorf("could not allocate a unique record id")
		}
	}

	rec := griddb.Record{
		ID:                id,
		ImageURL:          imageURL,
		Prompt:            prompt,
		GeneratedVideoURL: videoURL,
	}
	if err := s.store.InsertRecord(ctx, rec); err != nil {
		return 0, err
	}

	s.logger.Info().Int("record_id", id).Str("prompt", prompt).Msg("generation record inserted")
	return id, nil
}

// ListRecords reads records, optionally filtered to one id, newest first.
func (s *RecordService) ListRecords(ctx context.Context, id *int, limit int) ([]models.GenerationRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	var stmt string
	if id != nil {
		stmt = fmt.Sprintf("SELECT * FROM %s WHERE id = %d", s.store.Container(), *id)
	} else {
		stmt = fmt.Sprintf("SELECT * FROM %s ORDER BY id DESC LIMIT %d", s.store.Container(), limit)
	}

	results, err := s.store.Query(ctx, []griddb.SQLQuery{{Type: "sql-select", Stmt: stmt}})
	if err != nil {
		return nil, err
	}

	records := make([]models.GenerationRecord, 0)
	for _, result := range results {
		for _, row := range result.Results {
			rec, err := recordFromRow(row)
			if err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
	}
	return records, nil
}

func (s *RecordService) idTaken(ctx context.Context, id int) (bool, error) {
	stmt := fmt.Sprintf("SELECT id FROM %s WHERE id = %d", s.store.Container(), id)
	results, err := s.store.Query(ctx, []griddb.SQLQuery{{Type: "sql-select", Stmt: stmt}})
	if err != nil {
		return false, err
	}
	for _, result := range results {
		if len(result.Results) > 0 {
			return true, nil
		}
	}
	return false, nil
}

// recordFromRow projects a positional row (id, imageURL, prompt,
// generatedVideoURL) into a named record.
func recordFromRow(row []any) (models.GenerationRecord, error) {
	if len(row) < 4 {
		return models.GenerationRecord{}, fmt.Errorf("malformed record row: expected 4 columns, got %d", len(row))
	}
	return models.GenerationRecord{
		ID:                toInt(row[0]),
		ImageURL:          toString(row[1]),
		Prompt:            toString(row[2]),
		GeneratedVideoURL: toString(row[3]),
	}, nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	default:
		return 0
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// newRecordID derives a positive 31-bit id from random uuid bytes, matching
// the INTEGER row key column.
func newRecordID() int {
	u := uuid.New()
	return int(binary.BigEndian.Uint32(u[0:4]) & 0x7fffffff)
}
