//go:build integration

package db_test

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"pdfshare-backend/internal/comments"
	"pdfshare-backend/internal/documents"
	"pdfshare-backend/internal/shared/storage/db"
	"pdfshare-backend/internal/users"
)

var dsn string

func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "pdfshare_test",
			},
			WaitingFor: wait.ForListeningPort("5432/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		panic(err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		panic(err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		panic(err)
	}
	dsn = fmt.Sprintf("postgres://postgres:password@%s:%s/pdfshare_test?sslmode=disable", host, port.Port())

	code := m.Run()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func TestRepositoriesAgainstPostgres(t *testing.T) {
	ctx := context.Background()
	var conn *sqlx.DB
	// The container accepts TCP before postgres finishes its init restart.
	require.Eventually(t, func() bool {
		var err error
		conn, err = db.ConnectX(ctx, dsn, db.DefaultMigrateOptions())
		return err == nil
	}, 30*time.Second, 500*time.Millisecond)
	t.Cleanup(func() { _ = conn.Close() })

	require.NoError(t, db.RunMigrations(ctx, conn.DB))
	// A second run is a no-op.
	require.NoError(t, db.RunMigrations(ctx, conn.DB))

	userRepo := &users.PGRepo{DB: conn}
	docRepo := &documents.PGRepo{DB: conn}
	commentRepo := &comments.PGRepo{DB: conn}

	owner := users.User{ID: uuid.NewString(), Name: "Alice", Email: "Alice@Example.com", PasswordHash: "h"}
	reader := users.User{ID: uuid.NewString(), Name: "Bob", Email: "bob@example.com", PasswordHash: "h"}

	t.Run("users", func(t *testing.T) {
		require.NoError(t, userRepo.Create(ctx, owner))
		require.NoError(t, userRepo.Create(ctx, reader))

		dup := users.User{ID: uuid.NewString(), Name: "Other", Email: "ALICE@example.com"}
		assert.ErrorIs(t, userRepo.Create(ctx, dup), users.ErrEmailTaken)

		got, err := userRepo.GetByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, got.ID)

		_, err = userRepo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, users.ErrNotFound)

		batch, err := userRepo.GetByIDs(ctx, []string{owner.ID, reader.ID, uuid.NewString()})
		require.NoError(t, err)
		assert.Len(t, batch, 2)
	})

	doc := documents.Document{
		ID:         uuid.NewString(),
		OwnerID:    owner.ID,
		FileName:   "report.pdf",
		StorageKey: "documents/x/1-report.pdf",
		CreatedAt:  time.Now().UTC(),
	}

	t.Run("documents", func(t *testing.T) {
		require.NoError(t, docRepo.Create(ctx, doc))

		owned, err := docRepo.ListOwned(ctx, owner.ID)
		require.NoError(t, err)
		require.Len(t, owned, 1)
		assert.Nil(t, owned[0].ShareToken)

		require.NoError(t, docRepo.AddSharedUser(ctx, doc.ID, reader.ID))
		require.NoError(t, docRepo.AddSharedUser(ctx, doc.ID, reader.ID))

		ok, err := docRepo.IsSharedWith(ctx, doc.ID, reader.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		shared, err := docRepo.ListSharedWith(ctx, reader.ID)
		require.NoError(t, err)
		require.Len(t, shared, 1)
		assert.Equal(t, doc.ID, shared[0].ID)
	})

	t.Run("share token compare and set", func(t *testing.T) {
		const workers = 16
		results := make([]string, workers)
		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				tok, err := docRepo.SetShareTokenIfEmpty(ctx, doc.ID, fmt.Sprintf("token-%d", i))
				assert.NoError(t, err)
				results[i] = tok
			}(i)
		}
		wg.Wait()
		for _, tok := range results {
			assert.Equal(t, results[0], tok)
		}

		byToken, err := docRepo.GetByShareToken(ctx, results[0])
		require.NoError(t, err)
		assert.Equal(t, doc.ID, byToken.ID)

		_, err = docRepo.GetByShareToken(ctx, "missing")
		assert.ErrorIs(t, err, documents.ErrNotFound)
	})

	t.Run("comments keep append order", func(t *testing.T) {
		first, err := commentRepo.Append(ctx, comments.Comment{
			DocumentID: doc.ID,
			PageNumber: 1,
			Text:       "first",
			UserID:     &owner.ID,
		})
		require.NoError(t, err)

		guest := "Gus"
		second, err := commentRepo.Append(ctx, comments.Comment{
			DocumentID: doc.ID,
			PageNumber: 3,
			Text:       "second",
			GuestName:  &guest,
		})
		require.NoError(t, err)
		assert.Greater(t, second.Seq, first.Seq)

		list, err := commentRepo.ListByDocument(ctx, doc.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "first", list[0].Text)
		assert.Equal(t, "Alice", list[0].AuthorName)
		assert.Equal(t, "second", list[1].Text)
		require.NotNil(t, list[1].GuestName)
		assert.Equal(t, "Gus", *list[1].GuestName)
		assert.Equal(t, 3, list[1].PageNumber)
	})
}
