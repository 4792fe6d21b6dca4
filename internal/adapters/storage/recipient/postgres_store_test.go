package recipient

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "contactform/internal/domain/recipient"
)

func TestPostgresStore_Lookup(t *testing.T) {
	query := regexp.QuoteMeta(`SELECT topic, emails FROM recipient WHERE topic = $1`)

	t.Run("Found", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		rows := mockPool.NewRows([]string{"topic", "emails"}).AddRow("volunteering", "a@x.com,b@x.com")
		mockPool.ExpectQuery(query).WithArgs("volunteering").WillReturnRows(rows)

		rec, err := store.Lookup(context.Background(), "volunteering")
		assert.NoError(t, err)
		assert.Equal(t, []string{"a@x.com", "b@x.com"}, rec.Addresses())
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		mockPool.ExpectQuery(query).WithArgs("unknown").WillReturnError(pgx.ErrNoRows)

		_, err = store.Lookup(context.Background(), "unknown")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DBError", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()
		store := NewPostgresStore(mockPool)

		boom := errors.New("connection reset")
		mockPool.ExpectQuery(query).WithArgs("general").WillReturnError(boom)

		_, err = store.Lookup(context.Background(), "general")
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStore_Put(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	store := NewPostgresStore(mockPool)

	mockPool.ExpectExec(`INSERT INTO recipient`).
		WithArgs("general", "a@x.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = store.Put(context.Background(), domain.NewRecord("general", []string{"a@x.com"}))
	assert.NoError(t, err)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_Put_InvalidSkipsDB(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()
	store := NewPostgresStore(mockPool)

	err = store.Put(context.Background(), domain.Record{Emails: "a@x.com"})
	assert.ErrorIs(t, err, domain.ErrEmptyTopic)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	query := regexp.QuoteMeta(`DELETE FROM recipient WHERE topic = $1`)

	t.Run("Deleted", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec(query).WithArgs("general").WillReturnResult(pgxmock.NewResult("DELETE", 1))
		assert.NoError(t, NewPostgresStore(mockPool).Delete(context.Background(), "general"))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Missing", func(t *testing.T) {
		mockPool, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mockPool.Close()

		mockPool.ExpectExec(query).WithArgs("gone").WillReturnResult(pgxmock.NewResult("DELETE", 0))
		err = NewPostgresStore(mockPool).Delete(context.Background(), "gone")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresStore_List(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	rows := mockPool.NewRows([]string{"topic", "emails"}).
		AddRow("general", "g@x.com").
		AddRow("volunteering", "v@x.com")
	mockPool.ExpectQuery(regexp.QuoteMeta(`SELECT topic, emails FROM recipient ORDER BY topic`)).WillReturnRows(rows)

	got, err := NewPostgresStore(mockPool).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, "volunteering", got[1].Topic)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	mockPool.ExpectExec(`CREATE TABLE IF NOT EXISTS recipient`).WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	assert.NoError(t, NewPostgresStore(mockPool).EnsureSchema(context.Background()))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	boom := errors.New("unreachable")
	mockPool.ExpectPing().WillReturnError(boom)
	assert.ErrorIs(t, NewPostgresStore(mockPool).Ping(context.Background()), boom)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
