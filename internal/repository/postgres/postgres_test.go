package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/site-tracking/internal/domain"
	"github.com/ignite/site-tracking/internal/service/tracking"
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestVisitRepo_CreateVisit(t *testing.T) {
	db, mock := newMock(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	v := &domain.VisitRecord{
		SessionID: "s-1", UTMSource: "fb", UTMMedium: "cpc", UTMCampaign: "sale1",
		PagePath: "/", CreatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO utm_visits")).
		WithArgs(sqlmock.AnyArg(), "s-1", "fb", "cpc", "sale1", "", "", "/", "", "", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := NewVisitRepo(db).CreateVisit(context.Background(), v)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, id, v.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepo_LatestVisitBySession(t *testing.T) {
	db, mock := newMock(t)
	now := time.Now().UTC()
	cols := []string{"id", "session_id", "utm_source", "utm_medium", "utm_campaign", "utm_term",
		"utm_content", "page_path", "referrer", "user_agent", "converted", "conversion_value", "created_at"}

	mock.ExpectQuery(regexp.QuoteMeta("FROM utm_visits")).
		WithArgs("s-1").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("v-2", "s-1", "google", "", "spring", "", "", "/pricing", "", "ua", true, 49.99, now))

	v, err := NewVisitRepo(db).LatestVisitBySession(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "v-2", v.ID)
	assert.Equal(t, "spring", v.UTMCampaign)
	assert.True(t, v.Converted)
	require.NotNil(t, v.ConversionValue)
	assert.Equal(t, 49.99, *v.ConversionValue)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC")).
		WithArgs("s-2").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("v-3", "s-2", "", "", "", "", "", "/", "", "", false, nil, now))
	v, err = NewVisitRepo(db).LatestVisitBySession(context.Background(), "s-2")
	require.NoError(t, err)
	assert.Nil(t, v.ConversionValue)

	mock.ExpectQuery(regexp.QuoteMeta("FROM utm_visits")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)
	_, err = NewVisitRepo(db).LatestVisitBySession(context.Background(), "missing")
	assert.ErrorIs(t, err, tracking.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVisitRepo_MarkConverted(t *testing.T) {
	db, mock := newMock(t)
	value := 100.0

	mock.ExpectExec(regexp.QuoteMeta("UPDATE utm_visits SET converted = true")).
		WithArgs("v-1", sql.NullFloat64{Float64: 100, Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.NoError(t, NewVisitRepo(db).MarkConverted(context.Background(), "v-1", &value))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE utm_visits")).
		WithArgs("gone", sql.NullFloat64{}).
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, NewVisitRepo(db).MarkConverted(context.Background(), "gone", nil), tracking.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEventRepo_InsertEvent(t *testing.T) {
	db, mock := newMock(t)
	visitID := "v-1"
	value := 49.99
	now := time.Now().UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversion_events")).
		WithArgs(sqlmock.AnyArg(), "Purchase", sql.NullFloat64{Float64: 49.99, Valid: true}, "audit",
			sql.NullString{String: "v-1", Valid: true}, []byte(`{"plan":"pro"}`), now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := NewEventRepo(db).InsertEvent(context.Background(), &domain.ConversionEvent{
		EventType: domain.EventPurchase, Value: &value, ContentName: "audit",
		VisitID: &visitID, Metadata: map[string]interface{}{"plan": "pro"}, CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO conversion_events")).
		WithArgs(sqlmock.AnyArg(), "Lead", sql.NullFloat64{}, "", sql.NullString{}, []byte("{}"), now).
		WillReturnError(errors.New("connection reset"))
	_, err = NewEventRepo(db).InsertEvent(context.Background(), &domain.ConversionEvent{EventType: domain.EventLead, CreatedAt: now})
	assert.ErrorContains(t, err, "insert conversion event")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfigRepo(t *testing.T) {
	db, mock := newMock(t)
	repo := NewConfigRepo(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM tracking_pixels")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pixel_type", "pixel_id", "conversion_label", "enabled",
			"page_home", "page_product", "page_contact", "page_checkout"}).
			AddRow("p1", "meta_pixel", "12345", "", true, true, false, false, true))
	pixels, err := repo.EnabledPixels(ctx)
	require.NoError(t, err)
	require.Len(t, pixels, 1)
	assert.Equal(t, domain.IntegrationMetaPixel, pixels[0].Type)
	assert.True(t, pixels[0].AppliesTo(domain.PageCheckout))
	assert.False(t, pixels[0].AppliesTo(domain.PageProduct))

	mock.ExpectQuery(regexp.QuoteMeta("FROM marketing_scripts")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "content", "placement", "enabled", "sort_order"}).
			AddRow("m1", "chat", "<script></script>", "footer", true, 2))
	scripts, err := repo.EnabledMarketingScripts(ctx)
	require.NoError(t, err)
	require.Len(t, scripts, 1)
	assert.Equal(t, domain.PlacementFooter, scripts[0].Placement)
	assert.Equal(t, 2, scripts[0].SortOrder)

	mock.ExpectQuery(regexp.QuoteMeta("FROM conversion_settings")).
		WillReturnRows(sqlmock.NewRows([]string{"platform", "tracking_id", "conversion_label", "enabled"}).
			AddRow("google_ads", "AW-123456", "lbl", true))
	settings, err := repo.ConversionSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings.Platforms, 1)
	assert.Equal(t, "lbl", settings.Platforms[0].ConversionLabel)

	mock.ExpectQuery(regexp.QuoteMeta("FROM tracking_pixels")).WillReturnError(errors.New("timeout"))
	_, err = repo.EnabledPixels(ctx)
	assert.ErrorContains(t, err, "list tracking pixels")

	assert.NoError(t, mock.ExpectationsWereMet())
}
