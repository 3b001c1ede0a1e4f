package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/qrstock/internal/codegen"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/model"
)

// maxInsertAttempts bounds how often a generated code is redrawn when the
// INSERT itself loses a race on the unique index.
const maxInsertAttempts = 5

const itemColumns = `i.id, i.code, i.name, i.description, i.category, i.location, i.quantity,
	i.status, i.created_at, i.updated_at, i.created_by_id, COALESCE(u.username, '')`

const itemFrom = `FROM items i LEFT JOIN users u ON u.id = i.created_by_id`

// CreateItem creates a new item. A blank in.Code gets a generated code; an
// explicit one is normalized and must be free, otherwise ErrDuplicateCode.
func CreateItem(ctx context.Context, database *db.DB, in model.ItemInput, createdBy *int64) (*model.Item, error) {
	in.Normalize()

	if code := codegen.Normalize(in.Code); code != "" {
		if err := codegen.Validate(code); err != nil {
			return nil, err
		}
		taken, err := CodeExists(ctx, database, code)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, ErrDuplicateCode
		}
		return insertItem(ctx, database, code, in, createdBy)
	}

	exists := func(ctx context.Context, code string) (bool, error) {
		return CodeExists(ctx, database, code)
	}
	for attempt := 1; ; attempt++ {
		code, err := codegen.Generate(ctx, exists)
		if err != nil {
			return nil, err
		}
		item, err := insertItem(ctx, database, code, in, createdBy)
		if errors.Is(err, ErrDuplicateCode) && attempt < maxInsertAttempts {
			continue
		}
		return item, err
	}
}

func insertItem(ctx context.Context, database *db.DB, code string, in model.ItemInput, createdBy *int64) (*model.Item, error) {
	var id int64
	err := database.QueryRowContext(ctx, database.Rebind(
		`INSERT INTO items (code, name, description, category, location, quantity, status, created_by_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		code, in.Name, in.Description, in.Category, in.Location, in.Quantity, in.Status, createdBy,
	).Scan(&id)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateCode
	}
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItemByCode(ctx, database, code)
}

// CodeExists reports whether an item already uses code.
func CodeExists(ctx context.Context, database *db.DB, code string) (bool, error) {
	var count int
	err := database.QueryRowContext(ctx, database.Rebind(
		`SELECT COUNT(*) FROM items WHERE code = ?`), code,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking item code: %w", err)
	}
	return count > 0, nil
}

// GetItemByCode returns an item by its code, or nil if there is none.
func GetItemByCode(ctx context.Context, database *db.DB, code string) (*model.Item, error) {
	item := &model.Item{}
	err := database.QueryRowContext(ctx, database.Rebind(
		`SELECT `+itemColumns+` `+itemFrom+` WHERE i.code = ?`), codegen.Normalize(code),
	).Scan(itemDest(item)...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// ListItems returns items newest first, narrowed by filter. Search matches a
// case-insensitive substring of name, code or description; category and
// status match exactly.
func ListItems(ctx context.Context, database *db.DB, filter model.ItemFilter) ([]model.Item, error) {
	var where []string
	var args []any

	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + escapeLike(strings.ToLower(search)) + "%"
		where = append(where, `(LOWER(i.name) LIKE ? ESCAPE '\'
			OR LOWER(i.code) LIKE ? ESCAPE '\'
			OR LOWER(i.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Category != "" {
		where = append(where, `i.category = ?`)
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		where = append(where, `i.status = ?`)
		args = append(args, filter.Status)
	}

	query := `SELECT ` + itemColumns + ` ` + itemFrom
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := database.QueryContext(ctx, database.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := rows.Scan(itemDest(&item)...); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem replaces every editable field of the item with the given code.
func UpdateItem(ctx context.Context, database *db.DB, code string, in model.ItemInput) (*model.Item, error) {
	in.Normalize()
	code = codegen.Normalize(code)

	result, err := database.ExecContext(ctx, database.Rebind(
		`UPDATE items SET name = ?, description = ?, category = ?, location = ?, quantity = ?,
		        status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE code = ?`),
		in.Name, in.Description, in.Category, in.Location, in.Quantity, in.Status, code,
	)
	if err != nil {
		return nil, fmt.Errorf("updating item: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetItemByCode(ctx, database, code)
}

// DeleteItem removes the item with the given code.
func DeleteItem(ctx context.Context, database *db.DB, code string) error {
	result, err := database.ExecContext(ctx, database.Rebind(
		`DELETE FROM items WHERE code = ?`), codegen.Normalize(code),
	)
	if err != nil {
		return fmt.Errorf("deleting item: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCategories returns the distinct non-empty categories in use.
func ListCategories(ctx context.Context, database *db.DB) ([]string, error) {
	return distinct(ctx, database, "category")
}

// ListStatuses returns the distinct non-empty statuses in use.
func ListStatuses(ctx context.Context, database *db.DB) ([]string, error) {
	return distinct(ctx, database, "status")
}

// distinct enumerates a column; column is never user input.
func distinct(ctx context.Context, database *db.DB, column string) ([]string, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT DISTINCT `+column+` FROM items WHERE `+column+` <> '' ORDER BY `+column,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s values: %w", column, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning %s value: %w", column, err)
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

func itemDest(item *model.Item) []any {
	return []any{
		&item.ID, &item.Code, &item.Name, &item.Description, &item.Category, &item.Location,
		&item.Quantity, &item.Status, &item.CreatedAt, &item.UpdatedAt, &item.CreatedByID, &item.CreatedBy,
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
