package templatestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-omr/internal/sheet"
)

// SQLStore keeps descriptors as JSON in the omr_templates table created by
// db.Open. Both the sqlite and pgx drivers accept $n placeholders.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Put(ctx context.Context, t *sheet.Template) error {
	if err := t.Validate(); err != nil {
		return err
	}
	dj, err := json.Marshal(t.Descriptor())
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO omr_templates (id,version,page_count,questions,descriptor_json,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (id) DO UPDATE SET version=EXCLUDED.version, page_count=EXCLUDED.page_count,
			questions=EXCLUDED.questions, descriptor_json=EXCLUDED.descriptor_json, updated_at=EXCLUDED.updated_at`,
		t.ID, t.Version, t.PageCount, t.Questions(), string(dj), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("put template %s: %w", t.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*sheet.Template, error) {
	var dj string
	err := s.db.QueryRowContext(ctx, `SELECT descriptor_json FROM omr_templates WHERE id=$1`, id).Scan(&dj)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return sheet.Decode(strings.NewReader(dj))
}

func (s *SQLStore) List(ctx context.Context, opts ListOpts) ([]Summary, error) {
	q := `SELECT id,version,page_count,questions FROM omr_templates`
	args := []any{}
	if opts.Q != "" {
		// Literal, case-sensitive prefix: LIKE would treat % and _ as
		// wildcards and ignores case on sqlite.
		q += ` WHERE substr(id, 1, length(CAST($1 AS TEXT))) = CAST($1 AS TEXT)`
		args = append(args, opts.Q)
	}
	q += ` ORDER BY id`
	// sqlite needs LIMIT before OFFSET; without a limit the offset is applied
	// after the scan.
	sqlPaged := opts.Limit > 0
	if sqlPaged {
		args = append(args, opts.Limit, max(opts.Offset, 0))
		q += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Summary{}
	for rows.Next() {
		var sm Summary
		if err := rows.Scan(&sm.ID, &sm.Version, &sm.PageCount, &sm.Questions); err != nil {
			return nil, err
		}
		out = append(out, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !sqlPaged {
		out = page(out, opts)
	}
	return out, nil
}
