package unitofwork_test

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"compliance-assistant-be/internal/entity"
	"compliance-assistant-be/internal/model"
	"compliance-assistant-be/internal/repository/specification"
	"compliance-assistant-be/internal/repository/unitofwork"
	"compliance-assistant-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(gormDB, model.AllModels()...))

	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	ctx := context.Background()
	userId := uuid.New()

	t.Run("Document create and find in transaction", func(t *testing.T) {
		uow := uowFactory.NewUnitOfWork(ctx)
		require.NoError(t, uow.Begin(ctx))
		defer uow.Rollback()

		doc := &entity.Document{
			Id:          uuid.New(),
			UserId:      userId,
			FileName:    "RA-9003-checklist.pdf",
			FileSize:    2048,
			MimeType:    "application/pdf",
			StoragePath: userId.String() + "/" + uuid.NewString() + "/RA-9003-checklist.pdf",
		}
		require.NoError(t, uow.DocumentRepository().Create(ctx, doc))
		require.NoError(t, uow.Commit())

		read := uowFactory.NewUnitOfWork(ctx)
		found, err := read.DocumentRepository().FindOne(ctx,
			specification.ByUserID{UserID: userId},
			specification.FileNameContains{Term: "9003"},
		)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, doc.Id, found.Id)

		count, err := read.DocumentRepository().Count(ctx, specification.ByUserID{UserID: userId})
		assert.NoError(t, err)
		assert.EqualValues(t, 1, count)

		assert.NoError(t, read.DocumentRepository().Delete(ctx, doc.Id))
	})

	t.Run("WithinTransaction rolls back on error", func(t *testing.T) {
		docId := uuid.New()
		boom := errors.New("boom")
		err := unitofwork.WithinTransaction(ctx, uowFactory, func(uow unitofwork.UnitOfWork) error {
			require.NoError(t, uow.DocumentRepository().Create(ctx, &entity.Document{
				Id:          docId,
				UserId:      userId,
				FileName:    "draft.txt",
				FileSize:    1,
				MimeType:    "text/plain",
				StoragePath: userId.String() + "/" + docId.String() + "/draft.txt",
			}))
			return boom
		})
		assert.ErrorIs(t, err, boom)

		found, err := uowFactory.NewUnitOfWork(ctx).DocumentRepository().FindOne(ctx, specification.ByID{ID: docId})
		assert.NoError(t, err)
		assert.Nil(t, found)
	})

	t.Run("Canvas snapshot upsert", func(t *testing.T) {
		repo := uowFactory.NewUnitOfWork(ctx).CanvasSnapshotRepository()

		missing, err := repo.FindByUser(ctx, uuid.New())
		assert.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, repo.Upsert(ctx, &entity.CanvasSnapshot{UserId: userId, State: []byte(`{"versions":[]}`)}))
		require.NoError(t, repo.Upsert(ctx, &entity.CanvasSnapshot{UserId: userId, State: []byte(`{"versions":[],"currentVersionId":""}`)}))

		snap, err := repo.FindByUser(ctx, userId)
		require.NoError(t, err)
		assert.JSONEq(t, `{"versions":[],"currentVersionId":""}`, string(snap.State))
	})
}
