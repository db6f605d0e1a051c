package cli

import (
	"context"

	"zenrin-geocoding/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

func openPostgresSink(ctx context.Context, databaseURL string) (ResultSink, func(), error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	return repo, pool.Close, nil
}
