package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mohammadpnp/catalog-import/internal/domain/catalog"
	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

type ProductBulkImportRepository struct {
	pool *pgxpool.Pool
}

func NewProductBulkImportRepository(pool *pgxpool.Pool) *ProductBulkImportRepository {
	return &ProductBulkImportRepository{pool: pool}
}

// ImportChunk stages products with COPY and upserts them into the catalog in
// one transaction. Sku-keyed chunks upsert on the unique sku index; handle-keyed
// chunks match every variant under the handle.
func (r *ProductBulkImportRepository) ImportChunk(ctx context.Context, jobID string, opts domain.Options, products []catalog.Product) (catalog.ImportChunkResult, error) {
	if len(products) == 0 {
		return catalog.ImportChunkResult{}, nil
	}

	upsertKey := string(opts.UpsertKey)
	if upsertKey == "" {
		upsertKey = string(domain.UpsertBySKU)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return catalog.ImportChunkResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	rows := make([][]any, 0, len(products))
	for i, p := range products {
		images := p.ImageURLs
		if images == nil {
			images = []string{}
		}
		encodedImages, err := json.Marshal(images)
		if err != nil {
			return catalog.ImportChunkResult{}, fmt.Errorf("encode image urls: %w", err)
		}
		rows = append(rows, []any{
			jobID,
			int64(i),
			p.Identifier(upsertKey),
			p.Handle,
			p.SKU,
			p.Title,
			p.Description,
			p.VariantTitle,
			p.PriceAmount,
			p.CurrencyCode,
			p.InventoryQuantity,
			encodedImages,
		})
	}

	if _, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"stg_products"},
		[]string{"job_id", "row_index", "identifier", "handle", "sku", "title", "description", "variant_title", "price_amount", "currency_code", "inventory_quantity", "image_urls"},
		pgx.CopyFromRows(rows),
	); err != nil {
		return catalog.ImportChunkResult{}, fmt.Errorf("copy products staging: %w", err)
	}

	created, updated, err := upsertProducts(ctx, tx, jobID, upsertKey, opts)
	if err != nil {
		return catalog.ImportChunkResult{}, err
	}

	if _, err := tx.Exec(ctx, "DELETE FROM stg_products WHERE job_id = $1", jobID); err != nil {
		return catalog.ImportChunkResult{}, fmt.Errorf("cleanup stg_products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return catalog.ImportChunkResult{}, fmt.Errorf("commit import chunk: %w", err)
	}

	return catalog.ImportChunkResult{CreatedCount: created, UpdatedCount: updated}, nil
}

// PruneNotImportedBy removes catalog products the given job never touched.
func (r *ProductBulkImportRepository) PruneNotImportedBy(ctx context.Context, jobID string) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
DELETE FROM products
WHERE last_import_job_id IS DISTINCT FROM $1::uuid
`, jobID)
	if err != nil {
		return 0, fmt.Errorf("prune products: %w", err)
	}
	return tag.RowsAffected(), nil
}

const stagedProductsCTE = `
WITH staged AS (
    SELECT DISTINCT ON (identifier)
      NULLIF(handle, '') AS handle,
      NULLIF(sku, '') AS sku,
      title,
      description,
      variant_title,
      price_amount,
      currency_code,
      inventory_quantity,
      image_urls
    FROM stg_products
    WHERE job_id = $1
    ORDER BY identifier, row_index DESC
)`

func upsertProducts(ctx context.Context, tx pgx.Tx, jobID, upsertKey string, opts domain.Options) (int64, int64, error) {
	if upsertKey == string(domain.UpsertByHandle) {
		return upsertProductsByHandle(ctx, tx, jobID, opts)
	}

	rows, err := tx.Query(ctx, fmt.Sprintf(stagedProductsCTE+`, upserted AS (
    INSERT INTO products (id, handle, sku, title, description, variant_title, price_amount, currency_code, inventory_quantity, image_urls, last_import_job_id, created_at, updated_at)
    SELECT gen_random_uuid(), handle, sku, title, description, variant_title, price_amount, currency_code, inventory_quantity, image_urls, $1::uuid, NOW(), NOW()
    FROM staged
    ON CONFLICT (sku) DO UPDATE
      SET handle = COALESCE(EXCLUDED.handle, products.handle),
          title = EXCLUDED.title,
          description = EXCLUDED.description,
          variant_title = %s,
          price_amount = EXCLUDED.price_amount,
          currency_code = EXCLUDED.currency_code,
          inventory_quantity = EXCLUDED.inventory_quantity,
          image_urls = %s,
          last_import_job_id = EXCLUDED.last_import_job_id,
          updated_at = NOW()
    RETURNING (xmax = 0) AS inserted
)
SELECT inserted FROM upserted
`, variantTitleSet(opts.VariantMergeStrategy, "EXCLUDED"), imageURLsSet(opts.ImageStrategy, "EXCLUDED")), jobID)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert products by sku: %w", err)
	}
	defer rows.Close()

	return countInsertedUpdated(rows)
}

// upsertProductsByHandle updates every variant stored under a staged handle
// and inserts the handles the catalog does not have yet. A staged sku that
// already belongs to another product is dropped from the new row.
func upsertProductsByHandle(ctx context.Context, tx pgx.Tx, jobID string, opts domain.Options) (int64, int64, error) {
	var created, updated int64
	err := tx.QueryRow(ctx, fmt.Sprintf(stagedProductsCTE+`, updated AS (
    UPDATE products
      SET title = staged.title,
          description = staged.description,
          variant_title = %s,
          price_amount = staged.price_amount,
          currency_code = staged.currency_code,
          inventory_quantity = staged.inventory_quantity,
          image_urls = %s,
          last_import_job_id = $1::uuid,
          updated_at = NOW()
    FROM staged
    WHERE products.handle = staged.handle
    RETURNING staged.handle
), inserted AS (
    INSERT INTO products (id, handle, sku, title, description, variant_title, price_amount, currency_code, inventory_quantity, image_urls, last_import_job_id, created_at, updated_at)
    SELECT gen_random_uuid(),
      staged.handle,
      CASE WHEN EXISTS (SELECT 1 FROM products taken WHERE taken.sku = staged.sku) THEN NULL ELSE staged.sku END,
      staged.title, staged.description, staged.variant_title, staged.price_amount, staged.currency_code,
      staged.inventory_quantity, staged.image_urls, $1::uuid, NOW(), NOW()
    FROM staged
    WHERE NOT EXISTS (SELECT 1 FROM products existing WHERE existing.handle = staged.handle)
    ON CONFLICT DO NOTHING
    RETURNING 1
)
SELECT (SELECT COUNT(*) FROM inserted), (SELECT COUNT(DISTINCT handle) FROM updated)
`, variantTitleSet(opts.VariantMergeStrategy, "staged"), imageURLsSet(opts.ImageStrategy, "staged")), jobID).Scan(&created, &updated)
	if err != nil {
		return 0, 0, fmt.Errorf("upsert products by handle: %w", err)
	}
	return created, updated, nil
}

// variantTitleSet keeps the stored variant title on merge when the row leaves it blank.
func variantTitleSet(strategy, src string) string {
	if strategy == "replace" {
		return src + ".variant_title"
	}
	return "COALESCE(NULLIF(" + src + ".variant_title, ''), products.variant_title)"
}

func imageURLsSet(strategy, src string) string {
	switch strategy {
	case "replace":
		return src + ".image_urls"
	case "append":
		return "COALESCE(products.image_urls, '[]'::jsonb) || " + src + ".image_urls"
	default:
		return "CASE WHEN products.image_urls IS NULL OR products.image_urls = '[]'::jsonb THEN " + src + ".image_urls ELSE products.image_urls END"
	}
}

func countInsertedUpdated(rows pgx.Rows) (int64, int64, error) {
	var created int64
	var updated int64

	for rows.Next() {
		var inserted bool
		if err := rows.Scan(&inserted); err != nil {
			return 0, 0, err
		}
		if inserted {
			created++
		} else {
			updated++
		}
	}

	if err := rows.Err(); err != nil {
		return 0, 0, err
	}

	return created, updated, nil
}
