package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pasteleia/bakery/internal/domain/recipe"
)

const recipeColumns = `id::text, name, description, yield, ingredients, instructions, steps, created_at`

const (
	listRecipesSQL = `SELECT ` + recipeColumns + `
		FROM recipes
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC`

	getRecipeSQL = `SELECT ` + recipeColumns + ` FROM recipes WHERE id = $1`

	createRecipeSQL = `INSERT INTO recipes (name, description, yield, ingredients, instructions, steps)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id::text, created_at`

	updateRecipeSQL = `UPDATE recipes
		SET name = $2, description = $3, yield = $4, ingredients = $5, instructions = $6, steps = $7
		WHERE id = $1`

	deleteRecipeSQL = `DELETE FROM recipes WHERE id = $1`
)

var _ recipe.Repository = (*RecipeRepository)(nil)

// RecipeRepository implements recipe.Repository backed by PostgreSQL.
type RecipeRepository struct {
	pool *pgxpool.Pool
}

// NewRecipeRepository returns a RecipeRepository that uses the given pool.
func NewRecipeRepository(pool *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{pool: pool}
}

// List returns recipes whose name matches query, newest first.
func (r *RecipeRepository) List(ctx context.Context, query string) ([]recipe.Recipe, error) {
	rows, err := r.pool.Query(ctx, listRecipesSQL, query)
	if err != nil {
		return nil, fmt.Errorf("listing recipes: %w", err)
	}
	return pgx.CollectRows(rows, scanRecipe)
}

// Get returns one recipe.
func (r *RecipeRepository) Get(ctx context.Context, id string) (*recipe.Recipe, error) {
	if !validID(id) {
		return nil, recipe.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, getRecipeSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting recipe %q: %w", id, err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanRecipe)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, recipe.ErrNotFound
		}
		return nil, fmt.Errorf("getting recipe %q: %w", id, err)
	}
	return &rec, nil
}

// Create inserts rec and fills in its generated fields.
func (r *RecipeRepository) Create(ctx context.Context, rec *recipe.Recipe) error {
	err := r.pool.QueryRow(ctx, createRecipeSQL,
		rec.Name, rec.Description, rec.Yield, rec.Ingredients, rec.Instructions, encodeSteps(rec.Steps),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating recipe: %w", err)
	}
	return nil
}

// Update stores every field of rec.
func (r *RecipeRepository) Update(ctx context.Context, rec *recipe.Recipe) error {
	if !validID(rec.ID) {
		return recipe.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, updateRecipeSQL,
		rec.ID, rec.Name, rec.Description, rec.Yield, rec.Ingredients, rec.Instructions, encodeSteps(rec.Steps),
	)
	if err != nil {
		return fmt.Errorf("updating recipe %q: %w", rec.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

// Delete removes a recipe.
func (r *RecipeRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return recipe.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, deleteRecipeSQL, id)
	if err != nil {
		return fmt.Errorf("deleting recipe %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return recipe.ErrNotFound
	}
	return nil
}

func scanRecipe(row pgx.CollectableRow) (recipe.Recipe, error) {
	var (
		rec   recipe.Recipe
		steps []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.Name, &rec.Description, &rec.Yield,
		&rec.Ingredients, &rec.Instructions, &steps, &rec.CreatedAt,
	); err != nil {
		return rec, err
	}
	var err error
	rec.Steps, err = decodeSteps(steps)
	return rec, err
}

// encodeSteps renders steps as the JSONB column value; nil steps are NULL.
func encodeSteps(steps []recipe.Step) []byte {
	if steps == nil {
		return nil
	}
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ArrStart()
	for _, s := range steps {
		e.ObjStart()
		e.FieldStart("label")
		e.Str(s.Label)
		e.FieldStart("content")
		e.Str(s.Content)
		e.ObjEnd()
	}
	e.ArrEnd()
	return append([]byte(nil), e.Bytes()...)
}

func decodeSteps(data []byte) ([]recipe.Step, error) {
	if len(data) == 0 {
		return nil, nil
	}
	d := jx.DecodeBytes(data)
	if d.Next() == jx.Null {
		return nil, nil
	}

	var steps []recipe.Step
	if err := d.Arr(func(d *jx.Decoder) error {
		var s recipe.Step
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "label":
				s.Label, err = d.Str()
			case "content":
				s.Content, err = d.Str()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		steps = append(steps, s)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode recipe steps")
	}
	if len(steps) == 0 {
		return nil, nil
	}
	return steps, nil
}
