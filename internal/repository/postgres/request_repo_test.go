package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"eventparticipation/internal/domain"
)

var requestCols = []string{"id", "event_id", "requester_id", "status", "created"}

func TestRequestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`INSERT INTO participation_requests \(event_id, requester_id, status, created\)`).
		WithArgs("ev-1", "user-2", domain.RequestStatusPending, created).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("req-1"))

	req := domain.NewParticipationRequest("ev-1", "user-2", domain.RequestStatusPending, created)
	require.NoError(t, NewRequestRepository(db).Create(context.Background(), req))
	require.Equal(t, "req-1", req.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepository_GetByID(t *testing.T) {
	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		want    *domain.ParticipationRequest
		wantErr error
	}{
		{
			name: "found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM participation_requests\s+WHERE id = \$1`).
					WithArgs("req-1").
					WillReturnRows(sqlmock.NewRows(requestCols).AddRow("req-1", "ev-1", "user-2", "CONFIRMED", created))
			},
			want: &domain.ParticipationRequest{
				ID: "req-1", EventID: "ev-1", RequesterID: "user-2", Status: domain.RequestStatusConfirmed, Created: created,
			},
		},
		{
			name: "not found",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM participation_requests`).WithArgs("req-1").WillReturnError(sql.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`FROM participation_requests`).WithArgs("req-1").WillReturnError(sql.ErrConnDone)
			},
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			got, err := NewRequestRepository(db).GetByID(context.Background(), "req-1")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRequestRepository_ListByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ids := []string{"req-1", "req-2"}
	mock.ExpectQuery(`WHERE id = ANY\(\$1\)`).
		WithArgs(pq.Array(ids)).
		WillReturnRows(sqlmock.NewRows(requestCols).
			AddRow("req-2", "ev-1", "user-3", "PENDING", created).
			AddRow("req-1", "ev-1", "user-2", "PENDING", created))

	got, err := NewRequestRepository(db).ListByIDs(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "req-2", got[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestRepository_ListByEventID_Empty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE event_id = \$1\s+ORDER BY created, id`).
		WithArgs("ev-1").
		WillReturnRows(sqlmock.NewRows(requestCols))

	got, err := NewRequestRepository(db).ListByEventID(context.Background(), "ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestRequestRepository_GetActiveByEventAndRequester(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`WHERE event_id = \$1 AND requester_id = \$2 AND status <> 'CANCELED'`).
		WithArgs("ev-1", "user-2").
		WillReturnError(sql.ErrNoRows)

	_, err = NewRequestRepository(db).GetActiveByEventAndRequester(context.Background(), "ev-1", "user-2")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRequestRepository_CountByEventAndStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM participation_requests WHERE event_id = \$1 AND status = \$2`).
		WithArgs("ev-1", domain.RequestStatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	n, err := NewRequestRepository(db).CountByEventAndStatus(context.Background(), "ev-1", domain.RequestStatusConfirmed)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestRequestRepository_UpdateStatuses(t *testing.T) {
	tests := []struct {
		name     string
		ids      []string
		affected int64
		wantErr  error
	}{
		{"all rows", []string{"req-1", "req-2"}, 2, nil},
		{"missing row", []string{"req-1", "req-9"}, 1, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectExec(`UPDATE participation_requests SET status = \$1 WHERE id = ANY\(\$2\)`).
				WithArgs(domain.RequestStatusRejected, pq.Array(tt.ids)).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			err = NewRequestRepository(db).UpdateStatuses(context.Background(), tt.ids, domain.RequestStatusRejected)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRequestRepository_UpdateStatus_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE participation_requests SET status = \$1 WHERE id = \$2`).
		WithArgs(domain.RequestStatusCanceled, "req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewRequestRepository(db).UpdateStatus(context.Background(), "req-1", domain.RequestStatusCanceled)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
